package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"docsift/internal/chunk"
)

// ErrFileNotFound means the record points at a path with no readable bytes.
var ErrFileNotFound = errors.New("file does not exist")

type Parser interface {
	Parse(path, fileName string) ([]chunk.Chunk, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, contents []string) ([][]float32, error)
}

type ChunkStore interface {
	ReplaceFile(ctx context.Context, fileName string, chunks []chunk.Chunk) error
}

// Processor is the per-file worker: parse, embed, persist. Each invocation
// is a self-contained failure domain; any error aborts the file with zero
// chunk records visible to readers.
type Processor struct {
	parser    Parser
	embedder  Embedder
	store     ChunkStore
	uploadDir string
}

func NewProcessor(p Parser, e Embedder, s ChunkStore, uploadDir string) *Processor {
	return &Processor{parser: p, embedder: e, store: s, uploadDir: uploadDir}
}

func (p *Processor) Process(ctx context.Context, fileName string) error {
	path := filepath.Join(p.uploadDir, filepath.Base(fileName))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
		}
		return fmt.Errorf("stat %s: %w", fileName, err)
	}

	chunks, err := p.parser.Parse(path, fileName)
	if err != nil {
		return fmt.Errorf("parse %s: %w", fileName, err)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	// The embedding call is atomic: either every chunk gets a vector or the
	// file fails here with nothing persisted.
	vectors, err := p.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed %s: %w", fileName, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch for %s: got %d vectors for %d chunks", fileName, len(vectors), len(chunks))
	}

	// Vectors map back onto chunks by position, which is why the parser's
	// emission order must be stable.
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := p.store.ReplaceFile(ctx, fileName, chunks); err != nil {
		return fmt.Errorf("store chunks for %s: %w", fileName, err)
	}

	slog.InfoContext(ctx, "file processed", "name", fileName, "chunks", len(chunks))
	return nil
}
