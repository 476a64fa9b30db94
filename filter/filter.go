// Package filter decides, before any fixture work, whether a unit is
// scheduled at all.
package filter

import (
	"github.com/pkg/errors"

	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/unit"
)

// NightlyReason is the detail attached to units skipped for lack of nightly
// mode.
const NightlyReason = "requires nightly mode"

// Metadata is what a unit or suite declares about itself.
type Metadata struct {
	RequiresNightly bool
}

// Reader supplies declared metadata of units and of their suites.
type Reader interface {
	// UnitMetadata returns what the unit itself declares.
	UnitMetadata(unit.Identity) (Metadata, error)
	// SuiteMetadata returns what the suite declares for all of its units.
	SuiteMetadata(suite string) (Metadata, error)
}

// Decision is the state of a unit in the filtering state machine.
type Decision int

const (
	// Pending units have not been evaluated yet.
	Pending Decision = iota
	// StaticallySkipped units never reach setup.
	StaticallySkipped
	// Admitted units proceed to setup and execution.
	Admitted
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case StaticallySkipped:
		return "statically skipped"
	case Admitted:
		return "admitted"
	}
	return "unknown"
}

// Verdict is the final filtering decision of a unit.
type Verdict struct {
	Decision        Decision
	RequiresNightly bool
	Reason          string
}

// Evaluate decides whether the unit runs in the given mode. A nightly
// requirement declared on the suite applies to every unit in it and cannot be
// lifted by the unit.
func Evaluate(reader Reader, id unit.Identity, mode runctx.Mode) (Verdict, error) {
	suite, err := reader.SuiteMetadata(id.Suite)
	if err != nil {
		return Verdict{Decision: Pending}, errors.Wrapf(err, "reading metadata of suite %s", id.Suite)
	}
	own, err := reader.UnitMetadata(id)
	if err != nil {
		return Verdict{Decision: Pending}, errors.Wrapf(err, "reading metadata of unit %s", id)
	}

	requiresNightly := suite.RequiresNightly || own.RequiresNightly
	if requiresNightly && mode == runctx.Normal {
		return Verdict{Decision: StaticallySkipped, RequiresNightly: true, Reason: NightlyReason}, nil
	}
	return Verdict{Decision: Admitted, RequiresNightly: requiresNightly}, nil
}
