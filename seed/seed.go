// Package seed produces the run-level seed of a test run and the per-unit
// seeds derived from it.
//
// A run is reproducible as long as its seed is known: every unit seed is a
// pure function of the run seed and the unit identity.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// ErrNoEntropy is returned when a fresh seed cannot be read from the system
// entropy source. No unit can run deterministically without a seed, so callers
// should treat it as fatal for the whole run.
var ErrNoEntropy = errors.New("unable to obtain random seed")

// Seed is a fixed-width seed value.
type Seed uint64

// New returns a seed read from crypto/rand.
func New() (Seed, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, errors.Wrap(ErrNoEntropy, err.Error())
	}
	return Seed(binary.LittleEndian.Uint64(b[:])), nil
}

// Parse reads a seed in one of the accepted notations: "0x"-prefixed
// hexadecimal, plain decimal, or bare hexadecimal (e.g. "DEADBEEF") when the
// value contains hex letters.
func Parse(value string) (Seed, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, errors.New("empty seed")
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return parseBase(v[2:], 16, value)
	}
	if s, err := strconv.ParseUint(v, 10, 64); err == nil {
		return Seed(s), nil
	}
	return parseBase(v, 16, value)
}

func parseBase(digits string, base int, original string) (Seed, error) {
	s, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid seed %q", original)
	}
	return Seed(s), nil
}

// String returns the seed as "0x"-prefixed upper-case hex. The result is
// accepted by Parse.
func (s Seed) String() string {
	return fmt.Sprintf("0x%X", uint64(s))
}

// Derive mixes the run seed with a stable unit identity. The result depends on
// both inputs only, so the same run seed always reproduces the same unit seed,
// and a change to one identity does not predictably move another's seed.
func Derive(run Seed, identity string) Seed {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(run))

	d := xxhash.New()
	_, _ = d.Write(b[:])
	_, _ = d.WriteString(identity)
	return Seed(d.Sum64())
}
