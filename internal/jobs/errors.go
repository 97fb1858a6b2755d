package jobs

import (
	"errors"
	"fmt"
)

// ErrPostingNotFound is returned by PostingRepository.Get for unknown URLs.
var ErrPostingNotFound = errors.New("posting not found")

// ValidationError reports a raw record rejected at the store boundary
// before any mutation. The caller decides whether to skip and log.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("raw record missing required field %q", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
