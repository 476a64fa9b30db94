// Package report delivers unit outcomes to their destinations.
package report

import (
	"time"

	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

// Status is the single word shown for a unit in run output.
type Status string

const (
	// StatusPassed marks executed units that passed.
	StatusPassed = Status("PASSED")
	// StatusFailed marks executed units that failed.
	StatusFailed = Status("FAILED")
	// StatusIgnored marks statically skipped units.
	StatusIgnored = Status("IGNORED")
	// StatusAssumption marks units skipped by a failed assumption.
	StatusAssumption = Status("IGNORED/A")
)

// Entry is the report of a single unit. Every entry carries the run seed, so
// any skip or failure can be reproduced from the entry alone.
type Entry struct {
	ID          string
	RunID       string
	RunSeed     seed.Seed
	Unit        unit.Identity
	DerivedSeed seed.Seed
	Outcome     unit.Outcome
	Passed      bool
	Detail      string
	Duration    time.Duration
	Time        time.Time
	// Reproduce holds the environment assignments that rerun the unit with
	// the same draws. Only the run seed is reported when empty.
	Reproduce string
}

// Status maps the outcome of the entry to its output status.
func (e Entry) Status() Status {
	switch e.Outcome {
	case unit.StaticallySkipped:
		return StatusIgnored
	case unit.DynamicallySkipped:
		return StatusAssumption
	}
	if e.Passed {
		return StatusPassed
	}
	return StatusFailed
}
