package runner

import (
	"context"
	"runtime/debug"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/allegro/nightly-runner/filter"
	"github.com/allegro/nightly-runner/hook"
	"github.com/allegro/nightly-runner/metrics"
	"github.com/allegro/nightly-runner/report"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/scale"
	"github.com/allegro/nightly-runner/unit"
)

// Runner executes suites of units against a single run context. Units are
// filtered by their nightly requirement before any hook runs; admitted units
// are set up, executed and torn down, with teardown running exactly once even
// when the body fails, panics, times out or violates an assumption.
type Runner struct {
	config   Config
	run      *runctx.RunContext
	runID    string
	hooks    []hook.Hook
	reader   filter.Reader
	reporter report.Reporter
	outcomes *metrics.Outcomes
	arena    *scale.Arena
	clock    clock
}

// Hooks adds hooks called around every admitted unit.
func Hooks(hooks ...hook.Hook) func(*Runner) {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// Metadata replaces the nightly requirements declared on suites with the
// ones read from reader.
func Metadata(reader filter.Reader) func(*Runner) {
	return func(r *Runner) {
		r.reader = reader
	}
}

// Reporter sends an entry for every unit to reporter.
func Reporter(reporter report.Reporter) func(*Runner) {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// Outcomes records unit outcomes in metrics.
func Outcomes(outcomes *metrics.Outcomes) func(*Runner) {
	return func(r *Runner) {
		r.outcomes = outcomes
	}
}

// RunID tags report entries with id.
func RunID(id string) func(*Runner) {
	return func(r *Runner) {
		r.runID = id
	}
}

// NewRunner returns a runner bound to the given run context.
func NewRunner(config Config, run *runctx.RunContext, options ...func(*Runner)) *Runner {
	r := &Runner{
		config: config,
		run:    run,
		arena:  scale.NewArena(run.Policy()),
		clock:  systemClock{},
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run executes all units of suites and returns their results in declaration
// order. Units run concurrently up to Config.Workers. The returned error is
// set only when ctx was cancelled; unit failures are reported in results.
func (r *Runner) Run(ctx context.Context, suites ...Suite) ([]Result, error) {
	jobs := expand(suites)
	reader := r.reader
	if reader == nil {
		reader = declaredMetadata(suites)
	}

	log.WithFields(log.Fields{
		"Seed":       r.run.Seed(),
		"Mode":       r.run.Mode(),
		"Multiplier": r.run.Multiplier(),
		"Units":      len(jobs),
	}).Info("Starting run")

	workers := r.config.Workers
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(jobs))
	rejected := reject(jobs)
	group := new(errgroup.Group)
	group.SetLimit(workers)
	for _, j := range jobs {
		j := j
		if err, ok := rejected[j.index]; ok {
			log.WithError(err).WithField("Unit", j.id).Error("Unit rejected")
			results[j.index] = failed(Result{Identity: j.id, RunSeed: r.run.Seed(), DerivedSeed: r.run.DeriveSeed(j.id.String())}, err)
			r.record(results[j.index])
			continue
		}
		group.Go(func() error {
			result := r.runUnit(ctx, reader, j)
			results[j.index] = result
			r.record(result)
			return nil
		})
	}
	_ = group.Wait()

	return results, ctx.Err()
}

func declaredMetadata(suites []Suite) filter.Reader {
	declared := &filter.Static{}
	for _, s := range suites {
		declared.DeclareSuite(s.Name, filter.Metadata{RequiresNightly: s.Nightly})
		for _, u := range s.Units {
			declared.DeclareUnit(unit.Identity{Suite: s.Name, Name: u.Name}, filter.Metadata{RequiresNightly: u.Nightly})
		}
	}
	return declared
}

func (r *Runner) runUnit(ctx context.Context, reader filter.Reader, j job) Result {
	result := Result{
		Identity:    j.id,
		RunSeed:     r.run.Seed(),
		DerivedSeed: r.run.DeriveSeed(j.id.String()),
	}
	logger := log.WithFields(log.Fields{
		"Unit":     j.id,
		"Seed":     result.RunSeed,
		"UnitSeed": result.DerivedSeed,
	})

	verdict, err := filter.Evaluate(reader, j.id, r.run.Mode())
	if err != nil {
		logger.WithError(err).Error("Cannot decide whether unit runs")
		return failed(result, err)
	}
	if verdict.Decision == filter.StaticallySkipped {
		logger.WithField("Reason", verdict.Reason).Debug("Unit skipped")
		result.Outcome = unit.StaticallySkipped
		result.Detail = verdict.Reason
		return result
	}
	if err := ctx.Err(); err != nil {
		return failed(result, errors.Wrap(err, "run cancelled before setup"))
	}

	return r.execute(ctx, j, result, logger)
}

func (r *Runner) execute(ctx context.Context, j job, result Result, logger *log.Entry) Result {
	start := r.clock.Now()
	identity := j.id.String()
	stream := r.arena.Acquire(identity, result.DerivedSeed)
	defer r.arena.Release(identity)

	manager := hook.Manager{Hooks: append(append([]hook.Hook{}, r.hooks...), j.suite.Hooks...)}
	event := hook.Event{
		Type:    hook.SetupEvent,
		Unit:    j.id,
		RunSeed: result.RunSeed,
		Seed:    result.DerivedSeed,
	}

	env, err := manager.HandleEvent(event, false)
	defer func() {
		teardown := event
		teardown.Type = hook.TeardownEvent
		teardown.Env = env
		_, _ = manager.HandleEvent(teardown, true)
	}()
	if err != nil {
		logger.WithError(err).Error("Unit setup failed")
		result = failed(result, errors.Wrap(err, "setup failed"))
		result.Duration = r.clock.Since(start)
		return result
	}

	if r.config.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.UnitTimeout)
		defer cancel()
	}
	t := &T{
		ctx:    ctx,
		id:     j.id,
		run:    r.run,
		seed:   result.DerivedSeed,
		random: stream,
		env:    env,
		logger: logger,
	}

	err = invoke(ctx, j.unit.Body, t)
	result.Duration = r.clock.Since(start)
	switch {
	case err == nil:
		result.Outcome = unit.Executed
		result.Passed = true
		logger.Debug("Unit passed")
	case IsAssumptionViolated(err):
		result.Outcome = unit.DynamicallySkipped
		result.Detail = err.Error()
		logger.WithField("Reason", result.Detail).Info("Unit skipped")
	default:
		result = failed(result, err)
		logger.WithError(err).Error("Unit failed")
	}
	return result
}

// invoke runs body until it returns or ctx is done. A body still running
// after ctx is done is abandoned; it keeps its stream but nobody waits for it.
func invoke(ctx context.Context, body Body, t *T) error {
	if body == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- &PanicError{Value: p, Stack: debug.Stack()}
			}
		}()
		done <- body(t)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		t.Logger().WithError(ctx.Err()).Warn("Unit body abandoned while still running")
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(ErrUnitTimeout, "unit abandoned")
		}
		return errors.Wrap(ctx.Err(), "unit abandoned")
	}
}

func failed(result Result, err error) Result {
	result.Outcome = unit.Executed
	result.Passed = false
	result.Err = err
	result.Detail = err.Error()
	return result
}

func (r *Runner) record(result Result) {
	if r.outcomes != nil {
		r.outcomes.Record(result.Outcome, result.Passed, result.Duration)
	}
	if r.reporter != nil {
		entry := result.Entry(r.runID, r.clock.Now())
		entry.Reproduce = r.run.Reproduction()
		r.reporter.Report(entry)
	}
}
