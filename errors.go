package viz

import (
	"errors"
	"fmt"
)

// viz distinguishes two error classes. ErrInvalidUsage marks recoverable
// misuse of the API (wrong type passed to a typed setter, unknown slot name,
// double-binding a buffer): the caller may correct its arguments and retry.
// ErrFatal marks conditions after which rendering must not continue
// (unregistered program or rule, shader compile/link failure, a violated
// draw-time invariant). Both are ordinary error values; classify with
// errors.Is or IsFatal.
var (
	// ErrInvalidUsage is the root of the recoverable invalid-usage class.
	ErrInvalidUsage = errors.New("viz: invalid usage")

	// ErrFatal is the root of the must-not-continue class.
	ErrFatal = errors.New("viz: fatal")
)

// Usagef returns a recoverable invalid-usage error with a formatted message.
// The result matches ErrInvalidUsage under errors.Is.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidUsage)
}

// Fatalf returns a fatal error with a formatted message.
// The result matches ErrFatal under errors.Is.
func Fatalf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrFatal)
}

// IsFatal reports whether err belongs to the fatal class. Callers seeing a
// fatal error should stop submitting rendering work on this engine.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
