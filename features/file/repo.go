package file

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM files WHERE name = $1)`
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Create(ctx context.Context, rec *Record) error {
	rec.Status = StatusReadyToProcess
	query := `INSERT INTO files (name, status, uploaded_by) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, rec.Name, string(rec.Status), rec.UploadedBy).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

const recordColumns = `id, name, status, uploaded_by, COALESCE(err_msg, ''), attempts, created_at, updated_at`

func (r *PostgresRepo) List(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM files ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresRepo) ListEligible(ctx context.Context, maxAttempts int) ([]Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if maxAttempts > 0 {
		query := `SELECT ` + recordColumns + ` FROM files WHERE status = $1 OR (status = $2 AND attempts < $3) ORDER BY id`
		rows, err = r.db.QueryContext(ctx, query, string(StatusReadyToProcess), string(StatusFailed), maxAttempts)
	} else {
		query := `SELECT ` + recordColumns + ` FROM files WHERE status = $1 OR status = $2 ORDER BY id`
		rows, err = r.db.QueryContext(ctx, query, string(StatusReadyToProcess), string(StatusFailed))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BulkUpdateStatus applies all transitions in a single transaction: either
// every record moves or none does. A transition into failed also counts one
// attempt against the record.
func (r *PostgresRepo) BulkUpdateStatus(ctx context.Context, updates []StatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE files
		SET status = $1,
		    err_msg = $2,
		    attempts = CASE WHEN $1 = 'failed' THEN attempts + 1 ELSE attempts END,
		    updated_at = NOW()
		WHERE id = $3`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare status update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, string(u.Status), u.ErrMsg, u.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update status (id=%d): %w", u.ID, err)
		}
	}

	return tx.Commit()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.Name, &status, &rec.UploadedBy, &rec.ErrMsg, &rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
