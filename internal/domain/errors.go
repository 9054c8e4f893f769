package domain

import "errors"

// Domain errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoDocument       = errors.New("no document uploaded")
	ErrNoSignatures     = errors.New("no active signatures")
	ErrPageOutOfRange   = errors.New("page out of range")
	ErrUnsupportedImage = errors.New("unsupported image data")
	ErrImageTooLarge    = errors.New("image dimensions too large")
	ErrInvalidFile      = errors.New("invalid file")
	ErrUnknownBlob      = errors.New("unknown blob")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
