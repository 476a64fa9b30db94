package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAssumptionViolated matches every error returned by a failed assumption.
var ErrAssumptionViolated = errors.New("assumption violated")

// AssumptionViolated is returned by a unit body that cannot run in the current
// conditions. The runner reports the unit as dynamically skipped, not failed.
type AssumptionViolated struct {
	Message string
	// Cause is set when the assumption was that some operation succeeds.
	Cause error
}

func (a *AssumptionViolated) Error() string {
	if a.Cause != nil {
		return fmt.Sprintf("assumption violated: %s: %s", a.Message, a.Cause)
	}
	return "assumption violated: " + a.Message
}

// Is makes errors.Is(err, ErrAssumptionViolated) hold.
func (a *AssumptionViolated) Is(target error) bool {
	return target == ErrAssumptionViolated
}

func (a *AssumptionViolated) Unwrap() error {
	return a.Cause
}

// Assume returns nil when condition holds and *AssumptionViolated otherwise.
// The body is expected to return the error immediately:
//
//	if err := t.Assume(t.Nightly(), "nightly only"); err != nil {
//		return err
//	}
func Assume(condition bool, message string) error {
	if condition {
		return nil
	}
	return &AssumptionViolated{Message: message}
}

// Assumef is Assume with a formatted message.
func Assumef(condition bool, format string, args ...interface{}) error {
	if condition {
		return nil
	}
	return &AssumptionViolated{Message: fmt.Sprintf(format, args...)}
}

// AssumeNoError turns err into an assumption violation.
func AssumeNoError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AssumptionViolated{Message: message, Cause: err}
}

// IsAssumptionViolated reports whether err, or any error it wraps, is a
// violated assumption.
func IsAssumptionViolated(err error) bool {
	var violation *AssumptionViolated
	return errors.As(err, &violation)
}
