package ingest_test

import (
	"context"
	"sync"

	"docsift/features/file"
	"docsift/internal/chunk"
)

// fakeRepo is an in-memory file.Repository that records every bulk status
// write so tests can assert transition ordering.
type fakeRepo struct {
	mu      sync.Mutex
	records map[int64]*file.Record
	writes  [][]file.StatusUpdate
	listErr error
	bulkErr error
}

func newFakeRepo(records ...*file.Record) *fakeRepo {
	m := make(map[int64]*file.Record, len(records))
	for _, r := range records {
		m[r.ID] = r
	}
	return &fakeRepo{records: m}
}

func (f *fakeRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Create(ctx context.Context, rec *file.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRepo) List(ctx context.Context) ([]file.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]file.Record, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRepo) ListEligible(ctx context.Context, maxAttempts int) ([]file.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []file.Record
	for id := int64(1); id <= int64(len(f.records))+100; id++ {
		r, ok := f.records[id]
		if !ok {
			continue
		}
		switch r.Status {
		case file.StatusReadyToProcess:
			out = append(out, *r)
		case file.StatusFailed:
			if maxAttempts == 0 || r.Attempts < maxAttempts {
				out = append(out, *r)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) BulkUpdateStatus(ctx context.Context, updates []file.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return f.bulkErr
	}
	copied := make([]file.StatusUpdate, len(updates))
	copy(copied, updates)
	f.writes = append(f.writes, copied)
	for _, u := range updates {
		if r, ok := f.records[u.ID]; ok {
			r.Status = u.Status
			r.ErrMsg = u.ErrMsg
			if u.Status == file.StatusFailed {
				r.Attempts++
			}
		}
	}
	return nil
}

func (f *fakeRepo) statusOf(id int64) file.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

func (f *fakeRepo) errMsgOf(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].ErrMsg
}

func (f *fakeRepo) writeLog() [][]file.StatusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// fakeProcessor settles each file with a preconfigured error (nil = success)
// and records which statuses it observed at dispatch time.
type fakeProcessor struct {
	mu       sync.Mutex
	failures map[string]error
	panics   map[string]bool
	seen     []string
	observed []file.Status
	repo     *fakeRepo
	byName   map[string]int64
}

func (p *fakeProcessor) Process(ctx context.Context, fileName string) error {
	p.mu.Lock()
	p.seen = append(p.seen, fileName)
	if p.repo != nil && p.byName != nil {
		p.observed = append(p.observed, p.repo.statusOf(p.byName[fileName]))
	}
	p.mu.Unlock()

	if p.panics[fileName] {
		panic("worker blew up on " + fileName)
	}
	return p.failures[fileName]
}

// fakeEmbedder returns a fixed-dimension vector per content string, or fails
// the whole batch.
type fakeEmbedder struct {
	err   error
	dim   int
	calls [][]string
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, contents []string) ([][]float32, error) {
	e.calls = append(e.calls, contents)
	if e.err != nil {
		return nil, e.err
	}
	vecs := make([][]float32, len(contents))
	for i := range contents {
		vec := make([]float32, e.dim)
		vec[0] = float32(i + 1)
		vecs[i] = vec
	}
	return vecs, nil
}

// fakeChunkStore records batches; optionally fails.
type fakeChunkStore struct {
	err     error
	batches map[string][]chunk.Chunk
}

func (s *fakeChunkStore) ReplaceFile(ctx context.Context, fileName string, chunks []chunk.Chunk) error {
	if s.err != nil {
		return s.err
	}
	if s.batches == nil {
		s.batches = make(map[string][]chunk.Chunk)
	}
	s.batches[fileName] = chunks
	return nil
}

// fakeParser emits a fixed chunk sequence regardless of file contents.
type fakeParser struct {
	chunks []chunk.Chunk
	err    error
}

func (p *fakeParser) Parse(path, fileName string) ([]chunk.Chunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.chunks, nil
}
