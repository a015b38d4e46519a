package task

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/events"
)

// Registry maps task ids to tasks for the lifetime of the process.
//
// Entries are never evicted. Creation and lookup may happen concurrently from
// request handlers and runners; the map is guarded by a read/write mutex.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[uuid.UUID]*Task
	newID  func() uuid.UUID
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tasks:  make(map[uuid.UUID]*Task),
		newID:  uuid.New,
		logger: logger.With("component", "task_registry"),
	}
}

// Create allocates a fresh id and an empty queue, registers the task and
// returns it.
func (r *Registry) Create() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for id == uuid.Nil || r.tasks[id] != nil {
		id = r.newID()
	}

	t := newTask(id, events.NewQueue(r.logger.With("task_id", id)))
	r.tasks[id] = t

	r.logger.Debug("task registered", "task_id", id, "task_count", len(r.tasks))
	return t
}

// Get looks a task up by id.
func (r *Registry) Get(id uuid.UUID) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// SetResult records where a task's artifact was persisted. It may be called
// once per task; a second call fails with ErrResultAlreadySet.
func (r *Registry) SetResult(id uuid.UUID, location string) error {
	t, err := r.Get(id)
	if err != nil {
		return err
	}
	if location == "" {
		return fmt.Errorf("result location for task %s cannot be empty", id)
	}
	if err := t.setResult(location); err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	return nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
