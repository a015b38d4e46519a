package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/store"
)

// ResultFileName returns the file name used for a task's review artifact.
func ResultFileName(taskID uuid.UUID) string {
	return fmt.Sprintf("translation_review_%s.txt", taskID)
}

// ResultStore implements store.ResultStore on a local directory.
type ResultStore struct {
	dir    string
	logger *slog.Logger
}

// NewResultStore creates the directory if needed and returns a store rooted at it.
func NewResultStore(dir string, logger *slog.Logger) (*ResultStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: result directory cannot be empty", store.ErrInvalidEntity)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve result directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create result directory: %w", err)
	}

	return &ResultStore{
		dir:    abs,
		logger: logger.With("component", "result_store"),
	}, nil
}

// Dir returns the absolute directory results are written to.
func (s *ResultStore) Dir() string {
	return s.dir
}

// Put writes content through a temporary file and renames it into place, so
// readers never observe a partially written artifact.
func (s *ResultStore) Put(ctx context.Context, taskID uuid.UUID, content string) (string, error) {
	if taskID == uuid.Nil {
		return "", store.NewStoreError("result", "put", "task id cannot be nil", store.ErrInvalidEntity)
	}

	location := filepath.Join(s.dir, ResultFileName(taskID))

	tmp, err := os.CreateTemp(s.dir, ".result-*")
	if err != nil {
		return "", store.NewStoreError("result", "put", "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := io.WriteString(tmp, content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", store.NewStoreError("result", "put", "failed to write result", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", store.NewStoreError("result", "put", "failed to close result", err)
	}
	if err := os.Rename(tmpName, location); err != nil {
		_ = os.Remove(tmpName)
		return "", store.NewStoreError("result", "put", "failed to move result into place", err)
	}

	s.logger.DebugContext(ctx, "result stored",
		"task_id", taskID,
		"bytes", len(content))
	return location, nil
}

// Open returns the artifact at location. Locations outside the store's
// directory are treated as missing.
func (s *ResultStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	rel, err := filepath.Rel(s.dir, filepath.Clean(location))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, store.NewStoreError("result", "open", "location outside result directory", store.ErrResultNotFound)
	}

	f, err := os.Open(filepath.Join(s.dir, rel))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "result file missing", "location", location)
		return nil, store.NewStoreError("result", "open", "result file missing", store.ErrResultNotFound)
	}
	if err != nil {
		return nil, store.NewStoreError("result", "open", "failed to open result", err)
	}
	return f, nil
}

var _ store.ResultStore = (*ResultStore)(nil)
