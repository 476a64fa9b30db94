// Package rtest brings nightly filtering and scaled randomness to plain go
// tests. The run context is configured once per test binary from the same
// RUNNER_* variables the runner command reads:
//
//	func TestBulkIndexing(t *testing.T) {
//		rtest.Nightly(t)
//		n, err := rtest.Random(t).ScaledIntBetween(100, 1000)
//		...
//	}
package rtest

import (
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/scale"
)

var (
	once    sync.Once
	current *runctx.RunContext
	streams *scale.Arena
	initErr error

	mutex       sync.Mutex
	testPackage string
)

// Context returns the run context of the test binary, initializing it from
// the environment on first use.
func Context() (*runctx.RunContext, error) {
	once.Do(func() {
		current, initErr = initialize()
		if initErr == nil {
			streams = scale.NewArena(current.Policy())
		}
	})
	return current, initErr
}

func initialize() (*runctx.RunContext, error) {
	var config runner.Config
	if err := envconfig.Process(runner.EnvironmentPrefix, &config); err != nil {
		return nil, errors.Wrap(err, "invalid environment configuration")
	}
	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}
	params, err := config.Params()
	if err != nil {
		return nil, err
	}
	return runctx.Initialize(params)
}

func mustContext(t testing.TB) *runctx.RunContext {
	t.Helper()
	rc, err := Context()
	if err != nil {
		t.Fatalf("cannot initialize run context: %s", err)
	}
	return rc
}

// Nightly skips the test outside nightly mode.
func Nightly(t testing.TB) {
	t.Helper()
	if !mustContext(t).Nightly() {
		t.Skip("requires nightly mode")
	}
}

// Assume skips the test when condition does not hold.
func Assume(t testing.TB, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Skipf("assumption violated: %s", message)
	}
}

// Random returns the stream of the test, derived from the run seed and the
// test identity. Successive calls within one test continue the same stream.
// A failing test logs the seed that reproduces it.
func Random(t testing.TB) *scale.Random {
	t.Helper()
	rc := mustContext(t)
	id := Identity(t)

	mutex.Lock()
	defer mutex.Unlock()
	if r, ok := streams.Lookup(id); ok {
		return r
	}
	r := streams.Acquire(id, rc.DeriveSeed(id))
	t.Cleanup(func() {
		streams.Release(id)
		if t.Failed() {
			t.Logf("reproduce with %s (%s seed %s)", rc.Reproduction(), id, r.Seed())
		}
	})
	return r
}

// Identity returns the identity seeds of t are derived from: the import path
// of the test package followed by the test name. It falls back to the test
// name when the package cannot be determined.
func Identity(t testing.TB) string {
	if pkg := currentPackage(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.Name()
}

func currentPackage() string {
	mutex.Lock()
	defer mutex.Unlock()
	if testPackage == "" {
		testPackage = callingTestPackage()
	}
	return testPackage
}

// callingTestPackage returns the package of the function run by
// testing.tRunner on the current goroutine.
func callingTestPackage() string {
	pcs := make([]uintptr, 64)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	var last string
	for {
		frame, more := frames.Next()
		if frame.Function == "testing.tRunner" {
			return packageOf(last)
		}
		last = frame.Function
		if !more {
			return ""
		}
	}
}

// packageOf returns the import path of a qualified function name such as
// "github.com/org/repo/pkg.TestName.func1".
func packageOf(function string) string {
	slash := strings.LastIndex(function, "/")
	dot := strings.Index(function[slash+1:], ".")
	if dot < 0 {
		return ""
	}
	return function[:slash+1+dot]
}
