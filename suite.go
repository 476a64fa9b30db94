package runner

import (
	"github.com/pkg/errors"

	"github.com/allegro/nightly-runner/hook"
	"github.com/allegro/nightly-runner/unit"
)

// Body is the code of a unit. Returning an error fails the unit, except for
// errors produced by T.Assume, which skip it.
//
// A body that outlives Config.UnitTimeout or run cancellation is abandoned:
// the runner stops waiting and records the unit, but cannot stop the
// goroutine. Long running bodies should watch T.Context() and return once it
// is done.
type Body func(t *T) error

// Unit is a single schedulable test.
type Unit struct {
	Name string
	// Nightly units are skipped outside nightly mode without running any hook.
	Nightly bool
	// Repeat runs the unit the given number of times, each repetition with its
	// own identity and seed.
	Repeat int
	Body   Body
}

// Suite groups units that share a nightly requirement and fixtures.
type Suite struct {
	// Name should be fully qualified; together with unit names it forms the
	// identities seeds are derived from.
	Name string
	// Nightly suites require nightly mode for every unit they contain.
	Nightly bool
	// Hooks are called around every unit of the suite, after runner hooks on
	// setup and teardown.
	Hooks []hook.Hook
	Units []Unit
}

type job struct {
	index int
	suite *Suite
	unit  *Unit
	id    unit.Identity
}

func expand(suites []Suite) []job {
	var jobs []job
	for s := range suites {
		suite := &suites[s]
		for u := range suite.Units {
			declared := &suite.Units[u]
			for _, id := range unit.Expand(suite.Name, declared.Name, declared.Repeat) {
				jobs = append(jobs, job{index: len(jobs), suite: suite, unit: declared, id: id})
			}
		}
	}
	return jobs
}

// ErrDuplicateIdentity is wrapped by the error of units whose identity is
// used by another unit of the run.
var ErrDuplicateIdentity = errors.New("duplicate unit identity")

// reject returns the errors of jobs that must not run because their names are
// invalid or their identity is not unique. Units sharing an identity would
// share a seed and a stream, so all of them are rejected.
func reject(jobs []job) map[int]error {
	rejected := make(map[int]error)
	byIdentity := make(map[string][]int)
	for _, j := range jobs {
		if err := unit.ValidateNames(j.id.Suite, j.id.Name); err != nil {
			rejected[j.index] = err
			continue
		}
		key := j.id.String()
		byIdentity[key] = append(byIdentity[key], j.index)
	}
	for key, indexes := range byIdentity {
		if len(indexes) < 2 {
			continue
		}
		for _, i := range indexes {
			rejected[i] = errors.Wrapf(ErrDuplicateIdentity, "%s declared %d times", key, len(indexes))
		}
	}
	return rejected
}
