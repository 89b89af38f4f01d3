package file

import (
	"context"
	"time"
)

// Status is the processing state of an uploaded file. Only the ingestion
// orchestrator moves a record between states.
type Status string

const (
	StatusReadyToProcess Status = "ready_to_process"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// Record is one uploaded source document. Name is globally unique.
type Record struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	UploadedBy string    `json:"uploaded_by"`
	ErrMsg     string    `json:"err_msg,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusUpdate is one entry of a typed bulk status transition. ErrMsg is
// written as-is: set on failure, empty on completion (clearing any message
// from an earlier attempt).
type StatusUpdate struct {
	ID     int64
	Status Status
	ErrMsg string
}

type Repository interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context) ([]Record, error)

	// ListEligible returns records in ready_to_process, plus failed records
	// whose attempt count is below maxAttempts (0 = no limit).
	ListEligible(ctx context.Context, maxAttempts int) ([]Record, error)

	// BulkUpdateStatus applies every update in one transaction.
	BulkUpdateStatus(ctx context.Context, updates []StatusUpdate) error
}
