package gemini

import "errors"

var (
	// ErrInvalidConfig is returned when the reviewer cannot be configured.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrInvalidResponse is returned when the API reply cannot be used.
	ErrInvalidResponse = errors.New("invalid response from gemini")

	// ErrContentBlocked is returned when safety filters block the reply.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when retries are exhausted or
	// interrupted.
	ErrTransientFailure = errors.New("transient gemini failure")

	// ErrEmptySegment is returned for segments without source text.
	ErrEmptySegment = errors.New("segment source text cannot be empty")
)
