package simplify

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports malformed simplification input. Index is the
// offending point position, or -1 when the problem is not a point.
type InvalidInputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid input: %s %d: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for any InvalidInputError
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidOption(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Index: -1, Reason: fmt.Sprintf(format, args...)}
}

func invalidPoint(index int, format string, args ...any) error {
	return &InvalidInputError{Field: "point", Index: index, Reason: fmt.Sprintf(format, args...)}
}
