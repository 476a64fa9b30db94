// Package metrics counts unit outcomes and ships them, together with process
// metrics, to Graphite or the log.
package metrics

import (
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/allegro/nightly-runner/unit"
)

// Outcomes counts units by outcome in a metrics registry.
type Outcomes struct {
	executed       metrics.Counter
	passed         metrics.Counter
	failed         metrics.Counter
	staticSkipped  metrics.Counter
	dynamicSkipped metrics.Counter
	duration       metrics.Timer
}

// NewOutcomes registers outcome metrics in registry. A nil registry means the
// default one.
func NewOutcomes(registry metrics.Registry) *Outcomes {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	return &Outcomes{
		executed:       metrics.GetOrRegisterCounter("units.executed", registry),
		passed:         metrics.GetOrRegisterCounter("units.passed", registry),
		failed:         metrics.GetOrRegisterCounter("units.failed", registry),
		staticSkipped:  metrics.GetOrRegisterCounter("units.skipped.static", registry),
		dynamicSkipped: metrics.GetOrRegisterCounter("units.skipped.dynamic", registry),
		duration:       metrics.GetOrRegisterTimer("units.duration", registry),
	}
}

// Record counts a single unit. Durations are recorded for units that entered
// setup only.
func (o *Outcomes) Record(outcome unit.Outcome, passed bool, duration time.Duration) {
	switch outcome {
	case unit.StaticallySkipped:
		o.staticSkipped.Inc(1)
		return
	case unit.DynamicallySkipped:
		o.dynamicSkipped.Inc(1)
	case unit.Executed:
		o.executed.Inc(1)
		if passed {
			o.passed.Inc(1)
		} else {
			o.failed.Inc(1)
		}
	}
	o.duration.Update(duration)
}
