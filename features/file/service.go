package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrDuplicate means a file with the same name was uploaded before; names
// are globally unique.
var ErrDuplicate = errors.New("file already uploaded")

type Service struct {
	repo      Repository
	uploadDir string
}

func NewService(repo Repository, uploadDir string) *Service {
	return &Service{repo: repo, uploadDir: uploadDir}
}

// SaveUpload stores the uploaded bytes under the upload directory and
// creates the file record in ready_to_process. Rejected uploads (duplicate
// name) never reach the ingestion pipeline.
func (s *Service) SaveUpload(ctx context.Context, name, uploadedBy string, src io.Reader) (*Record, error) {
	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check for existing record: %w", err)
	}
	if exists {
		return nil, ErrDuplicate
	}

	path := filepath.Join(s.uploadDir, filepath.Base(name))
	if _, err := os.Stat(path); err == nil {
		return nil, ErrDuplicate
	}

	dst, err := os.Create(path) // #nosec G304 -- name is sanitized with filepath.Base above
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	rec := &Record{Name: name, UploadedBy: uploadedBy}
	if err := s.repo.Create(ctx, rec); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	slog.InfoContext(ctx, "file uploaded", "name", name, "uploaded_by", uploadedBy)
	return rec, nil
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.List(ctx)
}
