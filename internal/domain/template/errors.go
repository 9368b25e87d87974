package template

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned when a template id does not resolve.
var ErrTemplateNotFound = errors.New("template not found")

// ValidationError reports schema authoring violations (missing name,
// category, zero sections) or note-content violations at sign time. Fields
// maps a field id to its message when the failure is field-level.
type ValidationError struct {
	Reason string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
