package hook

import (
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

// EventType represents unit lifecycle event type.
type EventType int

const (
	// SetupEvent occurs after a unit is admitted by filtering and right before
	// its body runs. Statically skipped units never receive it.
	SetupEvent EventType = iota
	// TeardownEvent occurs after the body of an admitted unit finished, failed,
	// was abandoned by an assumption or timed out. It is guaranteed to be
	// delivered exactly once to every unit that received SetupEvent.
	TeardownEvent
)

func (t EventType) String() string {
	switch t {
	case SetupEvent:
		return "SetupEvent"
	case TeardownEvent:
		return "TeardownEvent"
	}
	return "UnknownEvent"
}

// Event is a container type for various event specific data.
type Event struct {
	Type EventType
	Unit unit.Identity
	// RunSeed is the seed of the whole run.
	RunSeed seed.Seed
	// Seed is the derived seed of the unit.
	Seed seed.Seed
	// Env holds the environment returned by setup hooks. Teardown hooks see
	// whatever setup managed to produce before it failed.
	Env Env
}

// Env is a container for os.Environ style list of combined environment variable strings.
type Env []string

// Hook is an interface for fixtures that prepare and release resources around
// a unit body.
type Hook interface {
	// HandleEvent is called when any of defined unit events occurs. Hooks
	// should ignore event types they do not support. Units run concurrently,
	// so a hook may receive events of different units at the same time.
	HandleEvent(Event) (Env, error)
}

// Func is an adapter to allow the use of ordinary functions as hooks.
type Func func(Event) (Env, error)

// HandleEvent calls f(event).
func (f Func) HandleEvent(event Event) (Env, error) {
	return f(event)
}
