package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/checker"
	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/phrazzld/transcheck-api/internal/redact"
	"github.com/phrazzld/transcheck-api/internal/store"
	"golang.org/x/sync/semaphore"
)

// DownloadPath returns the retrieval path announced in a task's complete event.
func DownloadPath(id uuid.UUID) string {
	return "/api/download/" + id.String()
}

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// MaxRunning bounds how many checkers execute at once.
	// If zero or negative, defaults to 1
	MaxRunning int

	// DownloadPath builds the retrieval reference for a finished task.
	// If nil, DownloadPath is used.
	DownloadPath func(uuid.UUID) string
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxRunning:   4,
		DownloadPath: DownloadPath,
	}
}

// Runner drives checkers for submitted tasks. Every run executes on its own
// goroutine and talks to the outside world only through the task's queue.
//
// A run is not tied to any subscriber: it continues after the client that
// started it, or the one streaming it, goes away. Only Stop cancels runs.
type Runner struct {
	registry *Registry
	results  store.ResultStore
	checker  checker.Checker
	config   RunnerConfig
	metrics  *Metrics
	logger   *slog.Logger

	slots *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a new Runner. metrics may be nil.
func NewRunner(
	registry *Registry,
	results store.ResultStore,
	chk checker.Checker,
	config RunnerConfig,
	metrics *Metrics,
	logger *slog.Logger,
) (*Runner, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if results == nil {
		return nil, errors.New("result store cannot be nil")
	}
	if chk == nil {
		return nil, errors.New("checker cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if config.MaxRunning <= 0 {
		logger.Warn("invalid max running tasks specified, using default",
			"specified_count", config.MaxRunning,
			"default_count", 1)
		config.MaxRunning = 1
	}
	if config.DownloadPath == nil {
		config.DownloadPath = DownloadPath
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		registry: registry,
		results:  results,
		checker:  chk,
		config:   config,
		metrics:  metrics,
		logger:   logger.With("component", "task_runner"),
		slots:    semaphore.NewWeighted(int64(config.MaxRunning)),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Submit schedules a run of the checker for t and returns immediately.
// Failures of the run itself are reported through t's queue, never here.
func (r *Runner) Submit(t *Task, params checker.Params) error {
	if t == nil {
		return errors.New("task cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrRunnerStopped
	}

	r.wg.Add(1)
	r.metrics.TaskAccepted()
	go r.run(t, params)

	r.logger.Debug("task submitted", "task_id", t.ID)
	return nil
}

// Stop prevents new submissions and waits for in-flight runs. If ctx ends
// before they finish, the remaining runs are cancelled and Stop waits for
// them to emit their terminal events.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.logger.Warn("shutdown deadline reached, cancelling running tasks")
		r.cancel()
		<-done
		return ctx.Err()
	}
}

// run executes one task from slot acquisition to its terminal event.
func (r *Runner) run(t *Task, params checker.Params) {
	defer r.wg.Done()

	logger := r.logger.With("task_id", t.ID)

	if err := r.slots.Acquire(r.ctx, 1); err != nil {
		logger.Warn("task abandoned before start", "error", err)
		t.setStatus(StatusFailed)
		r.push(logger, t, events.Failure("inspection cancelled: server is shutting down"))
		r.metrics.TaskAbandoned()
		return
	}
	defer r.slots.Release(1)

	t.setStatus(StatusRunning)
	r.metrics.TaskStarted()
	start := time.Now()

	logger.Info("processing task",
		"sheets", len(params.Sheets),
		"cell_range", params.CellRange,
		"model", params.ModelName)

	outcome := r.drive(r.ctx, logger, t, params)

	elapsed := time.Since(start)
	r.metrics.TaskFinished(outcome, elapsed)
	logger.Info("task finished",
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds())
}

// drive consumes the checker's event sequence until its terminal event.
// Exactly one terminal event is pushed to the task's queue on every path.
func (r *Runner) drive(ctx context.Context, logger *slog.Logger, t *Task, params checker.Params) (outcome string) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if t.Queue().Sealed() {
			// The terminal event is already out; a checker that keeps yielding
			// afterwards cannot change the task's outcome.
			logger.Warn("checker panicked after its terminal event", "panic", rec)
			outcome = OutcomeFailed
			if t.Status() == StatusCompleted {
				outcome = OutcomeCompleted
			}
			return
		}
		logger.Error("checker panicked", "panic", rec)
		outcome = r.fail(logger, t, fmt.Errorf("%w: panic: %v", checker.ErrCheckerFailure, rec))
	}()

	for ev, err := range r.checker.Check(ctx, params) {
		if err != nil {
			return r.fail(logger, t, err)
		}

		switch ev.Type {
		case events.TypeComplete:
			if err := r.complete(ctx, logger, t, ev); err != nil {
				return r.fail(logger, t, err)
			}
			return OutcomeCompleted

		case events.TypeError:
			msg := ev.Message()
			if msg == "" {
				msg = "inspection failed"
			}
			logger.Error("checker reported failure", "message", msg)
			t.setStatus(StatusFailed)
			r.push(logger, t, events.Failure(redact.String(msg)))
			return OutcomeFailed

		default:
			r.push(logger, t, ev)
		}
	}

	if err := ctx.Err(); err != nil {
		return r.fail(logger, t, fmt.Errorf("inspection cancelled: %w", err))
	}
	return r.fail(logger, t, fmt.Errorf("%w: checker finished without a result", checker.ErrCheckerFailure))
}

// complete persists the artifact, records its location and only then
// announces completion, so a subscriber reacting to the notice can always
// retrieve the result.
func (r *Runner) complete(ctx context.Context, logger *slog.Logger, t *Task, ev events.Event) error {
	location, err := r.results.Put(ctx, t.ID, ev.Output)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	if err := r.registry.SetResult(t.ID, location); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	t.setStatus(StatusCompleted)
	r.push(logger, t, events.Complete(r.config.DownloadPath(t.ID)))

	logger.Info("task completed successfully", "result_bytes", len(ev.Output))
	return nil
}

// fail marks the task failed and pushes its error event.
func (r *Runner) fail(logger *slog.Logger, t *Task, err error) string {
	logger.Error("task execution failed", "error", err)
	t.setStatus(StatusFailed)
	r.push(logger, t, events.Failure("inspection failed: "+redact.Error(err)))
	return OutcomeFailed
}

func (r *Runner) push(logger *slog.Logger, t *Task, ev events.Event) {
	if err := t.Queue().Push(ev); err != nil {
		logger.Error("failed to enqueue event",
			"event_type", ev.Type,
			"error", err)
	}
}
