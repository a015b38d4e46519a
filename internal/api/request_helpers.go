package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/transcheck-api/internal/api/shared"
	"github.com/phrazzld/transcheck-api/internal/task"
)

// TaskIDParam is the route parameter holding a task id.
const TaskIDParam = "taskID"

// getPathTaskID extracts the task id from the URL path. A malformed id
// cannot name a registered task, so it is reported as not found.
func getPathTaskID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, TaskIDParam)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id", task.ErrTaskNotFound)
	}
	return id, nil
}

// handlePathTaskID writes a 404 and returns false when the path holds no
// usable task id.
func handlePathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := getPathTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

// HandleAPIError maps err to a status code and safe message and writes the
// response. defaultMsg replaces the generic message for unexpected errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// logRequest returns logger tagged with the request's trace ID.
func logRequest(logger *slog.Logger, r *http.Request) *slog.Logger {
	return logger.With("trace_id", shared.GetTraceID(r.Context()))
}
