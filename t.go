package runner

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/hook"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/scale"
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

// T is the handle a unit body gets. It exposes the run context and the
// private random stream of the unit and must not be shared with other units.
type T struct {
	ctx    context.Context
	id     unit.Identity
	run    *runctx.RunContext
	seed   seed.Seed
	random *scale.Random
	env    hook.Env
	logger *log.Entry
}

// Context is cancelled when the unit times out or the run is cancelled.
func (t *T) Context() context.Context {
	return t.ctx
}

// Identity of the running unit.
func (t *T) Identity() unit.Identity {
	return t.id
}

// Random returns the stream of the unit. Draws are reproducible from the run
// seed and the unit identity.
func (t *T) Random() *scale.Random {
	return t.random
}

// Nightly reports whether the run is in nightly mode.
func (t *T) Nightly() bool {
	return t.run.Nightly()
}

// Mode of the run.
func (t *T) Mode() runctx.Mode {
	return t.run.Mode()
}

// Multiplier of the run.
func (t *T) Multiplier() float64 {
	return t.run.Multiplier()
}

// RunSeed is the seed that reproduces the whole run.
func (t *T) RunSeed() seed.Seed {
	return t.run.Seed()
}

// Seed is the seed of the unit stream.
func (t *T) Seed() seed.Seed {
	return t.seed
}

// Env returns KEY=VALUE pairs exported by setup hooks.
func (t *T) Env() hook.Env {
	return t.env
}

// Getenv returns the value of key exported by setup hooks. Later hooks
// override earlier ones.
func (t *T) Getenv(key string) string {
	prefix := key + "="
	for i := len(t.env) - 1; i >= 0; i-- {
		if strings.HasPrefix(t.env[i], prefix) {
			return t.env[i][len(prefix):]
		}
	}
	return ""
}

// Logger carries the identity and seeds of the unit.
func (t *T) Logger() *log.Entry {
	return t.logger
}

// Assume is the method form of the package-level Assume.
func (t *T) Assume(condition bool, message string) error {
	return Assume(condition, message)
}

// Assumef is the method form of the package-level Assumef.
func (t *T) Assumef(condition bool, format string, args ...interface{}) error {
	return Assumef(condition, format, args...)
}

// AssumeNightly fails the assumption outside nightly mode. Unlike a nightly
// declaration, setup and teardown still run around the unit.
func (t *T) AssumeNightly() error {
	return Assume(t.Nightly(), "requires nightly mode")
}

// ScaledIntBetween draws from the unit stream, see scale.Random.
func (t *T) ScaledIntBetween(min, max int) (int, error) {
	return t.random.ScaledIntBetween(min, max)
}

// ScaledDurationBetween draws from the unit stream, see scale.Random.
func (t *T) ScaledDurationBetween(min, max time.Duration) (time.Duration, error) {
	return t.random.ScaledDurationBetween(min, max)
}
