package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Common errors returned by the Queue
var (
	// ErrQueueSealed is returned by Push once a terminal event has been queued.
	ErrQueueSealed = errors.New("event queue is sealed")

	// ErrQueueDrained is returned by Next once the terminal event has been consumed.
	ErrQueueDrained = errors.New("event queue is drained")
)

// Queue is an unbounded FIFO of events for one task.
//
// It has exactly one writer (the task's runner) and is drained destructively
// by one reader at a time. Push never blocks, so a runner makes progress
// whether or not anyone is subscribed; every event is buffered until read.
// The first terminal event seals the queue.
type Queue struct {
	mu     sync.Mutex
	events []Event
	sealed bool
	// notify is closed and replaced whenever an event is pushed.
	notify chan struct{}
	logger *slog.Logger
}

// NewQueue creates an empty queue.
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		notify: make(chan struct{}),
		logger: logger,
	}
}

// Push appends an event. It fails with ErrQueueSealed after a terminal event.
func (q *Queue) Push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return ErrQueueSealed
	}

	q.events = append(q.events, ev)
	if ev.IsTerminal() {
		q.sealed = true
	}

	close(q.notify)
	q.notify = make(chan struct{})

	q.logger.Debug("event enqueued",
		"event_type", ev.Type,
		"queue_len", len(q.events),
		"sealed", q.sealed)
	return nil
}

// Next removes and returns the oldest event, waiting until one is available.
// It returns ctx.Err() if ctx ends first, and ErrQueueDrained if the queue is
// sealed and empty.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			ev := q.events[0]
			q.events[0] = Event{}
			q.events = q.events[1:]
			q.mu.Unlock()
			return ev, nil
		}
		if q.sealed {
			q.mu.Unlock()
			return Event{}, ErrQueueDrained
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Sealed reports whether a terminal event has been pushed.
func (q *Queue) Sealed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sealed
}
