package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/checker"
	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/phrazzld/transcheck-api/internal/store"
	"github.com/phrazzld/transcheck-api/internal/task"
)

// Request defaults applied when a field is left empty.
const (
	DefaultSourceLang     = "English"
	DefaultTargetLang     = "Korean"
	DefaultTargetCode     = "ko_KR"
	DefaultCellRange      = "C7:C28"
	DefaultMaxConcurrency = 5
)

// TaskSubmitter schedules checker runs for tasks.
type TaskSubmitter interface {
	Submit(t *task.Task, params checker.Params) error
}

// GlossaryLoader fetches glossaries from URLs. Refresh must not answer from
// a cache.
type GlossaryLoader interface {
	Refresh(ctx context.Context, url, sourceLang string) (*glossary.Glossary, error)
}

// InspectionRequest describes an inspection to start. File ids name
// documents in the upload directory.
type InspectionRequest struct {
	SourceFileID   string
	TargetFileID   string
	GlossaryFileID string
	Sheets         []string
	SheetLangs     map[string]checker.SheetLanguage
	GlossaryURL    string
	SourceLang     string
	TargetLang     string
	TargetCode     string
	MaxConcurrency int
	CellRange      string
	ModelName      string
}

// TaskSnapshot is a point-in-time view of a task.
type TaskSnapshot struct {
	ID          uuid.UUID
	Status      task.Status
	CreatedAt   time.Time
	DownloadURL string
}

// Subscription is an exclusive claim on a task's live feed.
type Subscription struct {
	TaskID uuid.UUID

	queue *events.Queue
	once  sync.Once
	close func()
}

// Next blocks for the task's next event. It returns events.ErrQueueDrained
// once the terminal event has been delivered.
func (s *Subscription) Next(ctx context.Context) (events.Event, error) {
	return s.queue.Next(ctx)
}

// Close releases the feed so another subscriber may attach. The task keeps
// running. Close is idempotent.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// InspectionService starts inspections and exposes their feeds and results.
type InspectionService interface {
	// StartInspection registers a task and schedules its run.
	StartInspection(ctx context.Context, req InspectionRequest) (uuid.UUID, error)

	// Subscribe claims the live feed of a task.
	Subscribe(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// OpenResult opens a finished task's artifact.
	OpenResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	// GetTask returns a snapshot of a task.
	GetTask(ctx context.Context, id uuid.UUID) (*TaskSnapshot, error)

	// CheckGlossary loads the glossary at url and returns the confirmation
	// message shown to users.
	CheckGlossary(ctx context.Context, url, sourceLang string) (string, error)
}

// InspectionServiceConfig holds settings for the inspection service.
type InspectionServiceConfig struct {
	// UploadDir is where file ids are resolved.
	UploadDir string
	// DefaultGlossaryURL is used when a request names no glossary.
	DefaultGlossaryURL string
	// DownloadPath builds the retrieval reference reported for finished tasks.
	DownloadPath func(uuid.UUID) string
}

type inspectionServiceImpl struct {
	registry   *task.Registry
	runner     TaskSubmitter
	results    store.ResultStore
	glossaries GlossaryLoader
	metrics    *task.Metrics
	config     InspectionServiceConfig
	logger     *slog.Logger
}

// NewInspectionService creates a new InspectionService.
// It returns an error if any of the required dependencies are nil.
// metrics may be nil.
func NewInspectionService(
	registry *task.Registry,
	runner TaskSubmitter,
	results store.ResultStore,
	glossaries GlossaryLoader,
	metrics *task.Metrics,
	config InspectionServiceConfig,
	logger *slog.Logger,
) (InspectionService, error) {
	if registry == nil {
		return nil, &InspectionServiceError{Operation: "create_service", Message: "registry cannot be nil"}
	}
	if runner == nil {
		return nil, &InspectionServiceError{Operation: "create_service", Message: "runner cannot be nil"}
	}
	if results == nil {
		return nil, &InspectionServiceError{Operation: "create_service", Message: "result store cannot be nil"}
	}
	if glossaries == nil {
		return nil, &InspectionServiceError{Operation: "create_service", Message: "glossary loader cannot be nil"}
	}
	if config.UploadDir == "" {
		return nil, &InspectionServiceError{Operation: "create_service", Message: "upload dir cannot be empty"}
	}
	if config.DownloadPath == nil {
		config.DownloadPath = task.DownloadPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &inspectionServiceImpl{
		registry:   registry,
		runner:     runner,
		results:    results,
		glossaries: glossaries,
		metrics:    metrics,
		config:     config,
		logger:     logger.With("component", "inspection_service"),
	}, nil
}

// StartInspection resolves the request into checker parameters, registers
// a task and submits it. Missing or unreadable documents are not detected
// here; they surface as the run's error event.
func (s *inspectionServiceImpl) StartInspection(ctx context.Context, req InspectionRequest) (uuid.UUID, error) {
	params, err := s.buildParams(req)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected inspection request", "error", err)
		return uuid.Nil, err
	}

	t := s.registry.Create()
	if err := s.runner.Submit(t, params); err != nil {
		s.logger.ErrorContext(ctx, "failed to submit inspection task",
			"error", err,
			"task_id", t.ID)
		return uuid.Nil, NewInspectionServiceError("start_inspection", "failed to submit task", err)
	}

	s.logger.InfoContext(ctx, "inspection task started",
		"task_id", t.ID,
		"model", params.ModelName)
	return t.ID, nil
}

// Subscribe claims id's feed for the caller.
func (s *inspectionServiceImpl) Subscribe(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	t, err := s.registry.Get(id)
	if err != nil {
		return nil, NewInspectionServiceError("subscribe", "failed to find task", err)
	}

	release, err := t.Attach()
	if err != nil {
		s.logger.WarnContext(ctx, "rejected second subscriber", "task_id", id)
		return nil, NewInspectionServiceError("subscribe", "failed to attach", err)
	}
	s.metrics.SubscriberAttached()

	return &Subscription{
		TaskID: id,
		queue:  t.Queue(),
		close: func() {
			release()
			s.metrics.SubscriberDetached()
		},
	}, nil
}

// OpenResult opens id's artifact. It distinguishes an unknown task, a task
// without a result yet and a result missing from storage.
func (s *inspectionServiceImpl) OpenResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	t, err := s.registry.Get(id)
	if err != nil {
		return nil, NewInspectionServiceError("open_result", "failed to find task", err)
	}

	location, ok := t.ResultLocation()
	if !ok {
		return nil, fmt.Errorf("%w: %s", task.ErrResultNotReady, id)
	}

	rc, err := s.results.Open(ctx, location)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to open result",
			"error", err,
			"task_id", id)
		return nil, NewInspectionServiceError("open_result", "failed to open result", err)
	}
	return rc, nil
}

// GetTask returns a snapshot of id.
func (s *inspectionServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*TaskSnapshot, error) {
	t, err := s.registry.Get(id)
	if err != nil {
		return nil, NewInspectionServiceError("get_task", "failed to find task", err)
	}

	snap := &TaskSnapshot{
		ID:        t.ID,
		Status:    t.Status(),
		CreatedAt: t.CreatedAt,
	}
	if _, ok := t.ResultLocation(); ok {
		snap.DownloadURL = s.config.DownloadPath(t.ID)
	}
	return snap, nil
}

// CheckGlossary fetches the glossary at url, bypassing any cached copy so
// the answer reflects the source as it is now.
func (s *inspectionServiceImpl) CheckGlossary(ctx context.Context, url, sourceLang string) (string, error) {
	if url == "" {
		url = s.config.DefaultGlossaryURL
	}
	if sourceLang == "" {
		sourceLang = DefaultSourceLang
	}

	g, err := s.glossaries.Refresh(ctx, url, sourceLang)
	if err != nil {
		s.logger.WarnContext(ctx, "glossary check failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrGlossaryUnavailable, err)
	}
	return glossary.Describe(g), nil
}

// buildParams applies defaults and resolves file ids inside the upload dir.
func (s *inspectionServiceImpl) buildParams(req InspectionRequest) (checker.Params, error) {
	if strings.TrimSpace(req.ModelName) == "" {
		return checker.Params{}, fmt.Errorf("%w: model_name is required", ErrInvalidParameters)
	}

	sourcePath, err := s.resolveUpload("source_file_id", req.SourceFileID)
	if err != nil {
		return checker.Params{}, err
	}
	targetPath, err := s.resolveUpload("target_file_id", req.TargetFileID)
	if err != nil {
		return checker.Params{}, err
	}

	var glossaryPath string
	if req.GlossaryFileID != "" {
		if glossaryPath, err = s.resolveUpload("glossary_file_id", req.GlossaryFileID); err != nil {
			return checker.Params{}, err
		}
	}

	params := checker.Params{
		SourcePath:     sourcePath,
		TargetPath:     targetPath,
		GlossaryPath:   glossaryPath,
		GlossaryURL:    req.GlossaryURL,
		Sheets:         req.Sheets,
		SheetLangs:     req.SheetLangs,
		SourceLang:     valueOr(req.SourceLang, DefaultSourceLang),
		TargetLang:     valueOr(req.TargetLang, DefaultTargetLang),
		TargetCode:     valueOr(req.TargetCode, DefaultTargetCode),
		MaxConcurrency: req.MaxConcurrency,
		CellRange:      strings.ToUpper(valueOr(req.CellRange, DefaultCellRange)),
		ModelName:      req.ModelName,
	}
	if params.MaxConcurrency <= 0 {
		params.MaxConcurrency = DefaultMaxConcurrency
	}
	if params.GlossaryURL == "" && params.GlossaryPath == "" {
		params.GlossaryURL = s.config.DefaultGlossaryURL
	}
	return params, nil
}

// resolveUpload maps a file id to a path in the upload dir. Ids must be
// bare file names.
func (s *inspectionServiceImpl) resolveUpload(field, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParameters, field)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %s must be a file name", ErrInvalidParameters, field)
	}
	return filepath.Join(s.config.UploadDir, id), nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
