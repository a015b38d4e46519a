package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/transcheck-api/internal/redact"
	"github.com/phrazzld/transcheck-api/internal/service"
	"github.com/phrazzld/transcheck-api/internal/store"
	"github.com/phrazzld/transcheck-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, task.ErrResultNotReady),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, task.ErrAlreadySubscribed):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrInvalidParameters),
		errors.Is(err, service.ErrGlossaryUnavailable),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrRunnerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that does not
// leak internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrResultNotReady):
		return "Result not ready or task not found"

	case store.IsNotFoundError(err):
		return "Result file missing from server"

	case errors.Is(err, task.ErrAlreadySubscribed):
		return "Task stream already has a subscriber"

	// Parameter errors are built from request field names only.
	case errors.Is(err, service.ErrInvalidParameters):
		return capitalize(err.Error())

	case errors.Is(err, service.ErrGlossaryUnavailable):
		_, detail, _ := strings.Cut(redact.Error(err), ": ")
		return "Glossary load failed: " + detail

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, task.ErrRunnerStopped):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validation failure into a short message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too small"
	case "max":
		return "too large"
	case "url":
		return "invalid URL"
	case "cellrange":
		return "must look like C7:C28"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
