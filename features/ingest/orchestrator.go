package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docsift/features/file"
)

// Pool is the bounded execution pool workers are dispatched to. Satisfied
// by *ants.Pool.
type Pool interface {
	Submit(task func()) error
}

type FileProcessor interface {
	Process(ctx context.Context, fileName string) error
}

// Outcome is the per-file result of one processing cycle.
type Outcome struct {
	FileName string      `json:"file_name"`
	Status   file.Status `json:"status"`
	Error    string      `json:"error,omitempty"`
}

type Report struct {
	Processed int       `json:"processed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Orchestrator drives the per-file state machine for one cycle:
//
//	ready_to_process | failed -> in_progress -> completed | failed
//
// It is the sole writer of file status; workers only write chunk records.
type Orchestrator struct {
	repo        file.Repository
	processor   FileProcessor
	pool        Pool
	maxAttempts int
}

func NewOrchestrator(repo file.Repository, processor FileProcessor, pool Pool, maxAttempts int) *Orchestrator {
	return &Orchestrator{repo: repo, processor: processor, pool: pool, maxAttempts: maxAttempts}
}

// RunCycle claims every eligible file, fans the work out to the pool and
// reconciles final statuses once every worker has settled. A failing file
// never aborts its siblings or the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Report, error) {
	files, err := o.repo.ListEligible(ctx, o.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list eligible files: %w", err)
	}
	if len(files) == 0 {
		slog.InfoContext(ctx, "no files available to process")
		return &Report{Outcomes: []Outcome{}}, nil
	}

	// Claim before dispatch: if the process dies mid-cycle, records are
	// visibly in_progress instead of silently unprocessed.
	claims := make([]file.StatusUpdate, len(files))
	for i, f := range files {
		claims[i] = file.StatusUpdate{ID: f.ID, Status: file.StatusInProgress}
	}
	if err := o.repo.BulkUpdateStatus(ctx, claims); err != nil {
		return nil, fmt.Errorf("claim files: %w", err)
	}

	slog.InfoContext(ctx, "processing cycle started", "files", len(files))

	results := make([]error, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		i, name := i, f.Name
		wg.Add(1)
		if err := o.pool.Submit(func() {
			defer wg.Done()
			results[i] = o.runWorker(ctx, name)
		}); err != nil {
			results[i] = fmt.Errorf("dispatch worker: %w", err)
			wg.Done()
		}
	}
	wg.Wait()

	report := &Report{Processed: len(files), Outcomes: make([]Outcome, len(files))}
	finals := make([]file.StatusUpdate, len(files))
	for i, f := range files {
		if results[i] != nil {
			finals[i] = file.StatusUpdate{ID: f.ID, Status: file.StatusFailed, ErrMsg: results[i].Error()}
			report.Outcomes[i] = Outcome{FileName: f.Name, Status: file.StatusFailed, Error: results[i].Error()}
			slog.WarnContext(ctx, "file processing failed", "name", f.Name, "error", results[i])
		} else {
			finals[i] = file.StatusUpdate{ID: f.ID, Status: file.StatusCompleted}
			report.Outcomes[i] = Outcome{FileName: f.Name, Status: file.StatusCompleted}
		}
	}
	if err := o.repo.BulkUpdateStatus(ctx, finals); err != nil {
		return nil, fmt.Errorf("reconcile statuses: %w", err)
	}

	slog.InfoContext(ctx, "processing cycle finished", "files", len(files))
	return report, nil
}

// runWorker isolates one file's execution: a panicking worker settles as an
// error instead of taking the pool down.
func (o *Orchestrator) runWorker(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return o.processor.Process(ctx, name)
}
