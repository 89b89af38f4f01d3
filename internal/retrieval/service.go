package retrieval

import (
	"context"
	"fmt"
	"time"

	"docsift/internal/chunk"
	"docsift/internal/middleware"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkSearcher interface {
	SearchNearest(ctx context.Context, vec []float32, limit int) ([]chunk.Match, error)
}

// Service answers semantic queries: embed the query text, then rank stored
// chunks by ascending cosine distance. An unreachable embedding service
// fails the whole query.
type Service struct {
	embedder Embedder
	store    ChunkSearcher
	topK     int
	logger   *QueryLogger
}

func NewService(e Embedder, s ChunkSearcher, topK int, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, topK: topK, logger: l}
}

func (s *Service) Search(ctx context.Context, query string) ([]chunk.Match, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.SearchNearest(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("nearest-neighbor search: %w", err)
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(matches),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return matches, nil
}
