package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"docsift/internal/middleware"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) (*Report, error)
}

type Handler struct {
	runner CycleRunner
}

func NewHandler(runner CycleRunner) *Handler {
	return &Handler{runner: runner}
}

// ProcessFiles triggers one processing cycle and reports the per-file
// outcomes. An idle cycle is a no-op message, not an error.
func (h *Handler) ProcessFiles(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.RunCycle(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "processing cycle failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	var resp map[string]interface{}
	if report.Processed == 0 {
		resp = map[string]interface{}{"message": "no files available to process"}
	} else {
		resp = map[string]interface{}{"message": "files processed", "details": report}
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
