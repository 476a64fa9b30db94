package scale

import (
	"sync"

	"github.com/allegro/nightly-runner/seed"
)

// Arena owns the private streams of all units of a run, keyed by unit
// identity. The arena itself is safe for concurrent use; the streams it hands
// out are not and belong to exactly one unit.
type Arena struct {
	policy Policy

	mutex   sync.Mutex
	streams map[string]*Random
}

// NewArena returns an empty arena whose streams scale with policy.
func NewArena(policy Policy) *Arena {
	return &Arena{
		policy:  policy,
		streams: make(map[string]*Random),
	}
}

// Acquire returns the stream of the unit with the given identity, creating it
// from s on first use. Acquiring an identity that is already live returns the
// existing stream, not a fresh one.
func (a *Arena) Acquire(identity string, s seed.Seed) *Random {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if r, ok := a.streams[identity]; ok {
		return r
	}
	r := New(s, a.policy)
	a.streams[identity] = r
	return r
}

// Lookup returns the live stream of the given unit, if any.
func (a *Arena) Lookup(identity string) (*Random, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	r, ok := a.streams[identity]
	return r, ok
}

// Release drops the stream of the given unit. A later Acquire starts the
// stream over from its seed.
func (a *Arena) Release(identity string) {
	a.mutex.Lock()
	delete(a.streams, identity)
	a.mutex.Unlock()
}

// Len returns the number of live streams.
func (a *Arena) Len() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.streams)
}
