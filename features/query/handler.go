package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"docsift/internal/chunk"
	"docsift/internal/middleware"
)

type Searcher interface {
	Search(ctx context.Context, query string) ([]chunk.Match, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(searcher Searcher) *Handler {
	return &Handler{searcher: searcher}
}

type resultItem struct {
	ChunkID     string            `json:"chunk_id"`
	FileName    string            `json:"file_name"`
	PageNo      int               `json:"page_no"`
	ContentType chunk.ContentType `json:"content_type"`
	Content     string            `json:"content"`
	Distance    float64           `json:"distance"`
}

// SearchText answers GET /search?q=... with the ranked matches for the
// query text.
func (h *Handler) SearchText(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	matches, err := h.searcher.Search(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "search failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	items := make([]resultItem, len(matches))
	for i, m := range matches {
		items[i] = resultItem{
			ChunkID:     fmt.Sprintf("chunk_%02d", m.ChunkID),
			FileName:    m.FileName,
			PageNo:      m.PageNo,
			ContentType: m.ContentType,
			Content:     m.Content,
			Distance:    m.Distance,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"query": q, "results": items}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
