// Package unit names schedulable test units.
package unit

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidName is returned for names that would make rendered identities
// ambiguous.
var ErrInvalidName = errors.New("invalid unit name")

// ValidateNames checks that the identity of a unit in a suite renders
// unambiguously: both names are non-empty, neither contains '#', and the
// unit name contains no '.', so the last '.' always separates the suite
// from the unit.
func ValidateNames(suite, name string) error {
	switch {
	case suite == "":
		return errors.Wrap(ErrInvalidName, "empty suite name")
	case name == "":
		return errors.Wrapf(ErrInvalidName, "empty unit name in suite %s", suite)
	case strings.ContainsRune(suite, '#'):
		return errors.Wrapf(ErrInvalidName, "suite %q contains '#'", suite)
	case strings.ContainsAny(name, ".#"):
		return errors.Wrapf(ErrInvalidName, "unit %q of suite %s contains '.' or '#'", name, suite)
	}
	return nil
}

// Identity uniquely names a unit within a run. It is the input of seed
// derivation, so it must be stable between runs.
type Identity struct {
	// Suite is the fully qualified name of the enclosing suite.
	Suite string
	// Name of the unit within the suite.
	Name string
	// Ordinal numbers repeated units starting at 1. Zero for units that are
	// not repeated.
	Ordinal int
}

// String returns "Suite.Name", or "Suite.Name#Ordinal" for repeated units.
func (id Identity) String() string {
	var b strings.Builder
	b.Grow(len(id.Suite) + len(id.Name) + 4)
	b.WriteString(id.Suite)
	b.WriteByte('.')
	b.WriteString(id.Name)
	if id.Ordinal > 0 {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(id.Ordinal))
	}
	return b.String()
}

// Expand returns the identities of a unit run repeat times. A repeat count
// below 2 yields the single, unnumbered identity.
func Expand(suite, name string, repeat int) []Identity {
	if repeat < 2 {
		return []Identity{{Suite: suite, Name: name}}
	}
	ids := make([]Identity, repeat)
	for i := range ids {
		ids[i] = Identity{Suite: suite, Name: name, Ordinal: i + 1}
	}
	return ids
}
