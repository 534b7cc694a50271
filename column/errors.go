package column

import (
	"errors"
	"fmt"
)

// Error categories for caller contract violations. Wrapped errors carry the
// details; match the category with errors.Is.
var (
	ErrNoData           = errors.New("no data")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrOutOfBounds      = errors.New("out of bounds")
)

// Errorf wraps kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
