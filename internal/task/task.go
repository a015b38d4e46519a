package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/events"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Common errors returned by the task package
var (
	// ErrTaskNotFound is returned when an id is not present in the registry.
	ErrTaskNotFound = errors.New("task not found")

	// ErrResultNotReady is returned when a task exists but has no result yet.
	ErrResultNotReady = errors.New("task result not ready")

	// ErrResultAlreadySet is returned when a task's result location is recorded twice.
	ErrResultAlreadySet = errors.New("task result already set")

	// ErrAlreadySubscribed is returned when a second subscriber attaches to a task.
	ErrAlreadySubscribed = errors.New("task already has a subscriber")

	// ErrRunnerStopped is returned when submitting to a runner that is shutting down.
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// Task is one inspection job. Its queue and result location are written only
// by the task's runner.
type Task struct {
	ID        uuid.UUID
	CreatedAt time.Time

	queue *events.Queue

	mu             sync.Mutex
	status         Status
	resultLocation string
	subscribed     bool
}

func newTask(id uuid.UUID, queue *events.Queue) *Task {
	return &Task{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		queue:     queue,
		status:    StatusPending,
	}
}

// Queue returns the task's event queue.
func (t *Task) Queue() *events.Queue {
	return t.queue
}

// Status returns the task's current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Task) setStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

// ResultLocation returns where the task's artifact was persisted, if anywhere.
func (t *Task) ResultLocation() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultLocation, t.resultLocation != ""
}

func (t *Task) setResult(location string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resultLocation != "" {
		return ErrResultAlreadySet
	}
	t.resultLocation = location
	return nil
}

// Attach claims the task's feed for one subscriber. The queue is drained
// destructively, so a second concurrent reader would steal events; it gets
// ErrAlreadySubscribed instead. The returned release func must be called
// when the subscriber goes away and is safe to call more than once.
func (t *Task) Attach() (release func(), err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribed {
		return nil, ErrAlreadySubscribed
	}
	t.subscribed = true

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.subscribed = false
			t.mu.Unlock()
		})
	}, nil
}
