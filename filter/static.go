package filter

import (
	"sync"

	"github.com/allegro/nightly-runner/unit"
)

// Static is an in-memory Reader. Units and suites without declared metadata
// require nothing. The zero value is ready to use.
type Static struct {
	mutex  sync.RWMutex
	suites map[string]Metadata
	units  map[string]Metadata
}

// DeclareSuite records the metadata of a suite.
func (s *Static) DeclareSuite(suite string, m Metadata) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.suites == nil {
		s.suites = make(map[string]Metadata)
	}
	s.suites[suite] = m
}

// DeclareUnit records the metadata of a unit. All repetitions of a unit share
// the metadata of its unnumbered identity.
func (s *Static) DeclareUnit(id unit.Identity, m Metadata) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.units == nil {
		s.units = make(map[string]Metadata)
	}
	id.Ordinal = 0
	s.units[id.String()] = m
}

// UnitMetadata implements Reader.
func (s *Static) UnitMetadata(id unit.Identity) (Metadata, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	id.Ordinal = 0
	return s.units[id.String()], nil
}

// SuiteMetadata implements Reader.
func (s *Static) SuiteMetadata(suite string) (Metadata, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.suites[suite], nil
}
