// Package unitlog forwards structured output of units to a log destination.
// Lines a unit prints in logfmt or JSON are scraped into entries, extended
// with the unit identity and seeds, and appended to logrus or Logstash.
package unitlog

import (
	"github.com/allegro/nightly-runner/runenv"
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
)

// Entry represents one scraped log line in flat key-value store.
type Entry map[string]interface{}

// Extender adds data to entries. Extend must not modify the passed entry;
// keys of the returned entry override the original ones.
type Extender interface {
	Extend(Entry) Entry
}

// Extend returns a channel of entries read from in and extended with
// extenders. The returned channel is closed after in is closed.
func Extend(in <-chan Entry, extenders ...Extender) <-chan Entry {
	if len(extenders) == 0 {
		return in
	}
	out := make(chan Entry)
	go func() {
		defer close(out)
		for entry := range in {
			for _, extender := range extenders {
				entry = extender.Extend(entry)
			}
			out <- entry
		}
	}()
	return out
}

func clone(entry Entry, extra int) Entry {
	extended := make(Entry, len(entry)+extra)
	for key, value := range entry {
		extended[key] = value
	}
	return extended
}

// UnitExtender tags entries with the unit that produced them.
type UnitExtender struct {
	Unit    unit.Identity
	RunSeed seed.Seed
	Seed    seed.Seed
}

// Extend implements Extender.
func (e UnitExtender) Extend(entry Entry) Entry {
	extended := clone(entry, 4)
	extended["unit"] = e.Unit.String()
	extended["suite"] = e.Unit.Suite
	extended["seed"] = e.RunSeed.String()
	extended["unit_seed"] = e.Seed.String()
	return extended
}

// HostExtender returns an extender adding the host name as srchost. The
// extender adds nothing when the host name cannot be determined.
func HostExtender() Extender {
	hostname, err := runenv.Hostname()
	if err != nil {
		return StaticDataExtender{}
	}
	return StaticDataExtender{Data: map[string]interface{}{"srchost": hostname}}
}

// StaticDataExtender adds Data to every entry.
type StaticDataExtender struct {
	Data map[string]interface{}
}

// Extend implements Extender.
func (e StaticDataExtender) Extend(entry Entry) Entry {
	extended := clone(entry, len(e.Data))
	for key, value := range e.Data {
		extended[key] = value
	}
	return extended
}
