package runner

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/allegro/nightly-runner/report"
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

// ErrUnitTimeout is wrapped by the error of units abandoned after
// Config.UnitTimeout.
var ErrUnitTimeout = errors.New("unit timed out")

// PanicError is the error of a unit whose body panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("unit panicked: %v", p.Value)
}

// Result of a single unit.
type Result struct {
	Identity unit.Identity
	Outcome  unit.Outcome
	// Passed is meaningful only for executed units.
	Passed bool
	// Detail is the skip reason or the failure message.
	Detail      string
	Err         error
	RunSeed     seed.Seed
	DerivedSeed seed.Seed
	Duration    time.Duration
}

// Failed reports whether the unit executed and did not pass.
func (r Result) Failed() bool {
	return r.Outcome == unit.Executed && !r.Passed
}

// Entry converts the result into a report entry.
func (r Result) Entry(runID string, at time.Time) report.Entry {
	return report.Entry{
		RunID:       runID,
		RunSeed:     r.RunSeed,
		Unit:        r.Identity,
		DerivedSeed: r.DerivedSeed,
		Outcome:     r.Outcome,
		Passed:      r.Passed,
		Detail:      r.Detail,
		Duration:    r.Duration,
		Time:        at,
	}
}

// AnyFailed reports whether any of results failed.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}
