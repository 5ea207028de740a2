package observable

import (
	"errors"
	"fmt"
)

// ErrCycle is reported when notification recurses deeper than the
// runtime's maximum depth, which happens when reactions write back to
// fields they depend on.
var ErrCycle = errors.New("observable: reaction cycle detected")

// ErrTypeMismatch is returned by Set when the value cannot be stored in
// the target field.
var ErrTypeMismatch = errors.New("observable: value not assignable to field")

// ErrNotCallable is returned by Call for fields that do not hold a function.
var ErrNotCallable = errors.New("observable: field is not callable")

// ErrUnknownField is returned by Call for fields the object does not have.
var ErrUnknownField = errors.New("observable: unknown field")

// ErrBadArguments is returned by Call when the arguments do not match the
// function signature.
var ErrBadArguments = errors.New("observable: bad call arguments")

// CycleError is the panic value raised when notification depth exceeds
// the runtime's limit.
type CycleError struct {
	// Property is the field whose write exceeded the limit.
	Property PropertyID

	// Depth is the notification depth that was reached.
	Depth int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: write to %s at notification depth %d", ErrCycle, e.Property, e.Depth)
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}
