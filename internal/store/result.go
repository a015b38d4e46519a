package store

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ResultStore persists the final review artifact of a task.
//
// Each task's result is written once by the task's runner and may be read
// any number of times afterwards.
type ResultStore interface {
	// Put persists content for the task and returns the location it was
	// written to. The location is deterministic for a task id.
	Put(ctx context.Context, taskID uuid.UUID, content string) (string, error)

	// Open returns a reader for the artifact at location.
	// Returns ErrResultNotFound if nothing is stored there.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}
