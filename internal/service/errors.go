package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/transcheck-api/internal/store"
	"github.com/phrazzld/transcheck-api/internal/task"
)

// Common service errors. The API layer maps them to HTTP status codes.
var (
	// ErrInvalidParameters indicates a request that cannot start an
	// inspection. API layer should map this to HTTP 400 Bad Request.
	ErrInvalidParameters = errors.New("invalid inspection parameters")

	// ErrGlossaryUnavailable indicates a glossary that could not be loaded.
	// API layer should map this to HTTP 400 Bad Request.
	ErrGlossaryUnavailable = errors.New("glossary unavailable")
)

// InspectionServiceError wraps unexpected errors from the inspection
// service with the operation that failed.
type InspectionServiceError struct {
	// Operation is the operation that failed (e.g., "start_inspection")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface.
func (e *InspectionServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inspection service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("inspection service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *InspectionServiceError) Unwrap() error {
	return e.Err
}

// NewInspectionServiceError creates a new InspectionServiceError.
// Known sentinel errors are returned unwrapped.
func NewInspectionServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrInvalidParameters,
		ErrGlossaryUnavailable,
		task.ErrTaskNotFound,
		task.ErrResultNotReady,
		task.ErrAlreadySubscribed,
		store.ErrResultNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	return &InspectionServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
