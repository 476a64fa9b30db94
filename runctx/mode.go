package runctx

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode is the execution mode of a run.
type Mode int

const (
	// Normal is the default, everyday mode: nightly units are skipped and
	// random ranges are not amplified.
	Normal Mode = iota
	// Nightly is the exhaustive mode: nightly units run and random ranges are
	// amplified by the run multiplier.
	Nightly
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Nightly:
		return "nightly"
	}
	return "unknown"
}

// ParseMode reads a mode name. "daily" is accepted as an alias of "normal".
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "normal", "daily":
		return Normal, nil
	case "nightly":
		return Nightly, nil
	}
	return Normal, errors.Errorf("unknown mode %q", value)
}
