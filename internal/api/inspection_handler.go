package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/transcheck-api/internal/api/shared"
	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/phrazzld/transcheck-api/internal/platform/filestore"
	"github.com/phrazzld/transcheck-api/internal/service"
)

// DefaultHeartbeat is used when a handler is built with a non-positive
// heartbeat interval.
const DefaultHeartbeat = 15 * time.Second

// InspectionHandler handles inspection task HTTP requests.
type InspectionHandler struct {
	service   service.InspectionService
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewInspectionHandler creates a new InspectionHandler. heartbeat is the
// interval between keep-alive comments on idle streams.
func NewInspectionHandler(svc service.InspectionService, heartbeat time.Duration, logger *slog.Logger) *InspectionHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectionHandler{
		service:   svc,
		heartbeat: heartbeat,
		logger:    logger.With("component", "inspection_handler"),
	}
}

// StartInspection handles POST /api/start.
func (h *InspectionHandler) StartInspection(w http.ResponseWriter, r *http.Request) {
	var req StartInspectionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req.CellRange = strings.ToUpper(strings.TrimSpace(req.CellRange))

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	id, err := h.service.StartInspection(r.Context(), service.InspectionRequest{
		SourceFileID:   req.SourceFileID,
		TargetFileID:   req.TargetFileID,
		GlossaryFileID: req.GlossaryFileID,
		Sheets:         req.Sheets,
		SheetLangs:     req.SheetLangs,
		GlossaryURL:    req.GlossaryURL,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		TargetCode:     req.TargetCode,
		MaxConcurrency: req.MaxConcurrency,
		CellRange:      req.CellRange,
		ModelName:      req.ModelName,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start inspection")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartInspectionResponse{TaskID: id.String()})
}

// StreamEvents handles GET /api/stream/{taskID}. It relays the task's feed
// as server-sent events until the terminal event has been written or the
// client goes away. Disconnecting does not stop the task.
func (h *InspectionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathTaskID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	ctx := r.Context()
	sub, err := h.service.Subscribe(ctx, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open task stream")
		return
	}
	defer sub.Close()

	log := logRequest(h.logger, r).With("task_id", id)
	log.Debug("stream opened")

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		waitCtx, cancel := context.WithTimeout(ctx, h.heartbeat)
		ev, err := sub.Next(waitCtx)
		cancel()

		switch {
		case err == nil:
			data, err := encodeSSEEvent(ev)
			if err != nil {
				log.Error("dropping event that cannot be encoded",
					"event_type", ev.Type,
					"error", err)
				if !ev.IsTerminal() {
					continue
				}
				// The feed must still end with a terminal frame.
				data, _ = encodeSSEEvent(events.Failure("inspection failed: result notice could not be encoded"))
			}
			if err := writeSSEFrame(w, data); err != nil {
				log.Warn("failed to write event", "error", err)
				return
			}
			flusher.Flush()
			if ev.IsTerminal() {
				log.Debug("stream finished", "event_type", ev.Type)
				return
			}

		case errors.Is(err, events.ErrQueueDrained):
			log.Debug("stream opened after terminal event was delivered")
			return

		case ctx.Err() != nil:
			log.Debug("client disconnected")
			return

		case errors.Is(err, context.DeadlineExceeded):
			if err := writeSSEHeartbeat(w); err != nil {
				log.Debug("failed to write heartbeat", "error", err)
				return
			}
			flusher.Flush()

		default:
			log.Error("failed to read task events", "error", err)
			return
		}
	}
}

// DownloadResult handles GET /api/download/{taskID}.
func (h *InspectionHandler) DownloadResult(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathTaskID(w, r)
	if !ok {
		return
	}

	rc, err := h.service.OpenResult(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read result")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filestore.ResultFileName(id)+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		logRequest(h.logger, r).Warn("failed to send result",
			"task_id", id,
			"error", err)
	}
}

// GetTask handles GET /api/tasks/{taskID}.
func (h *InspectionHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathTaskID(w, r)
	if !ok {
		return
	}

	snap, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{
		TaskID:      snap.ID.String(),
		Status:      string(snap.Status),
		CreatedAt:   snap.CreatedAt,
		DownloadURL: snap.DownloadURL,
	})
}
