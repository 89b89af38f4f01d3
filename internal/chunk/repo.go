package chunk

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ReplaceFile atomically swaps the chunk set for one file: any rows left over
// from a previous run are deleted and the new batch inserted in a single
// transaction, so readers never observe a partial chunk set. The write runs
// on a dedicated connection so concurrent per-file workers do not share a
// session.
func (s *PostgresStore) ReplaceFile(ctx context.Context, fileName string, chunks []Chunk) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_name = $1`, fileName); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete stale chunks for %s: %w", fileName, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (file_name, page_no, content_type, content, embedding) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		var emb interface{}
		if c.Embedding != nil {
			emb = pgvector.NewVector(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.FileName, c.PageNo, string(c.ContentType), c.Content, emb); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk (file=%s page=%d): %w", c.FileName, c.PageNo, err)
		}
	}

	return tx.Commit()
}

// SearchNearest returns up to limit chunks ordered by ascending cosine
// distance to vec. Ties are broken by chunk id so result order is
// reproducible. Rows without an embedding are excluded.
func (s *PostgresStore) SearchNearest(ctx context.Context, vec []float32, limit int) ([]Match, error) {
	query := `SELECT id, file_name, page_no, content_type, content, embedding <=> $1 AS distance
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, id
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var ct string
		if err := rows.Scan(&m.ChunkID, &m.FileName, &m.PageNo, &ct, &m.Content, &m.Distance); err != nil {
			return nil, err
		}
		m.ContentType = ContentType(ct)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) CountByFile(ctx context.Context, fileName string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE file_name = $1`, fileName).Scan(&count)
	return count, err
}
