// Package runctx holds the process-wide, read-only state of a single test run:
// its seed, its execution mode and the multiplier derived from them.
package runctx

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/scale"
	"github.com/allegro/nightly-runner/seed"
)

// DefaultNightlyMultiplier is the multiplier used in nightly mode when neither
// the policy nor the run parameters set one.
const DefaultNightlyMultiplier = 2.0

// ErrInvalidMultiplier is returned for multipliers that would narrow ranges
// or are not finite.
var ErrInvalidMultiplier = errors.New("multiplier must be a finite number >= 1")

// Params are the already parsed run parameters. Nil pointers mean the value
// was not supplied.
type Params struct {
	// Seed of the run. A fresh one is generated when nil.
	Seed *seed.Seed
	// Mode of the run. Normal when nil.
	Mode *Mode
	// Multiplier overrides NightlyMultiplier in nightly mode.
	Multiplier *float64
	// NightlyMultiplier is the policy multiplier for nightly mode.
	// DefaultNightlyMultiplier when zero.
	NightlyMultiplier float64
	// MaxSpan bounds every scaled span. Unbounded when zero.
	MaxSpan uint64
}

// RunContext is immutable after Initialize and safe for concurrent reads.
type RunContext struct {
	seed          seed.Seed
	seedGenerated bool
	mode          Mode
	multiplier    float64
	maxSpan       uint64
}

// Initialize builds the context of a run. It fails when no seed was supplied
// and none can be generated, which no run can recover from.
func Initialize(params Params) (*RunContext, error) {
	rc := &RunContext{mode: Normal, maxSpan: params.MaxSpan}
	if params.Mode != nil {
		rc.mode = *params.Mode
	}
	if rc.maxSpan == 0 {
		rc.maxSpan = math.MaxUint64
	}

	nightlyMultiplier := params.NightlyMultiplier
	if nightlyMultiplier == 0 {
		nightlyMultiplier = DefaultNightlyMultiplier
	}
	if err := validateMultiplier(nightlyMultiplier); err != nil {
		return nil, errors.Wrap(err, "invalid nightly multiplier")
	}
	if params.Multiplier != nil {
		if err := validateMultiplier(*params.Multiplier); err != nil {
			return nil, errors.Wrap(err, "invalid multiplier override")
		}
	}

	rc.multiplier = 1.0
	if rc.mode == Nightly {
		rc.multiplier = nightlyMultiplier
		if params.Multiplier != nil {
			rc.multiplier = *params.Multiplier
		}
	} else if params.Multiplier != nil && *params.Multiplier != 1.0 {
		log.WithField("Multiplier", *params.Multiplier).Warn("Ignoring multiplier override outside nightly mode")
	}

	if params.Seed != nil {
		rc.seed = *params.Seed
	} else {
		s, err := seed.New()
		if err != nil {
			return nil, err
		}
		rc.seed = s
		rc.seedGenerated = true
	}

	log.WithFields(log.Fields{
		"Seed":       rc.seed,
		"Generated":  rc.seedGenerated,
		"Mode":       rc.mode,
		"Multiplier": rc.multiplier,
	}).Info("Run context initialized")
	return rc, nil
}

func validateMultiplier(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 1 {
		return errors.Wrapf(ErrInvalidMultiplier, "got %v", m)
	}
	return nil
}

// Seed returns the run seed. Re-supplying it reproduces the run.
func (rc *RunContext) Seed() seed.Seed {
	return rc.seed
}

// SeedGenerated reports whether the seed was generated rather than supplied.
func (rc *RunContext) SeedGenerated() bool {
	return rc.seedGenerated
}

// Mode returns the execution mode of the run.
func (rc *RunContext) Mode() Mode {
	return rc.mode
}

// Nightly reports whether the run is in nightly mode.
func (rc *RunContext) Nightly() bool {
	return rc.mode == Nightly
}

// Multiplier returns 1.0 in normal mode and the nightly multiplier (or its
// override) in nightly mode.
func (rc *RunContext) Multiplier() float64 {
	return rc.multiplier
}

// MaxSpan returns the absolute bound of scaled spans.
func (rc *RunContext) MaxSpan() uint64 {
	return rc.maxSpan
}

// Policy returns the scaling policy of the run.
func (rc *RunContext) Policy() scale.Policy {
	return scale.Policy{Multiplier: rc.multiplier, MaxSpan: rc.maxSpan}
}

// Reproduction returns the environment assignments that rerun the run with the
// same draws. The multiplier is given in nightly mode only and the span bound
// only when one is set.
func (rc *RunContext) Reproduction() string {
	line := fmt.Sprintf("RUNNER_SEED=%s RUNNER_MODE=%s", rc.seed, rc.mode)
	if rc.Nightly() {
		line += fmt.Sprintf(" RUNNER_MULTIPLIER=%g", rc.multiplier)
	}
	if rc.maxSpan != math.MaxUint64 {
		line += fmt.Sprintf(" RUNNER_MAX_SPAN=%d", rc.maxSpan)
	}
	return line
}

// DeriveSeed returns the seed of the unit with the given identity.
func (rc *RunContext) DeriveSeed(identity string) seed.Seed {
	return seed.Derive(rc.seed, identity)
}

// NewRandom returns a fresh private stream for the unit with the given identity.
func (rc *RunContext) NewRandom(identity string) *scale.Random {
	return scale.New(rc.DeriveSeed(identity), rc.Policy())
}
