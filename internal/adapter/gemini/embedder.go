package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder wraps the Gemini embedding model behind the batch contract the
// ingestion pipeline relies on: one vector per input, same order, fixed
// dimensionality, all-or-nothing failure.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbedder(ctx context.Context, apiKey, model string, dim int) (*Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model, dim: dim}, nil
}

// EmbedBatch embeds every content string in one service call. Any transport
// error, or a response that does not line up with the request (count or
// dimensionality mismatch), fails the whole batch; callers never see partial
// results.
func (e *Embedder) EmbedBatch(ctx context.Context, contents []string) ([][]float32, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	slog.DebugContext(ctx, "embedding batch", "model", e.model, "count", len(contents))

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, c := range contents {
		batch.AddContent(genai.Text(c))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "batch embedding failed", "error", err, "count", len(contents))
		return nil, fmt.Errorf("batch embed: %w", err)
	}

	return mapEmbeddings(res.Embeddings, len(contents), e.dim)
}

// Embed is the single-string path used for query embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

// mapEmbeddings validates the service response against the request shape and
// the configured output dimensionality.
func mapEmbeddings(embeddings []*genai.ContentEmbedding, want, dim int) ([][]float32, error) {
	if len(embeddings) != want {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), want)
	}

	vecs := make([][]float32, want)
	for i, emb := range embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		if len(emb.Values) != dim {
			return nil, fmt.Errorf("embedding dimensionality mismatch at index %d: got %d, want %d", i, len(emb.Values), dim)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}
