package main

import (
	"time"

	"github.com/spf13/cobra"

	runner "github.com/allegro/nightly-runner"
)

// runFlags override the environment configuration when set.
type runFlags struct {
	seed       string
	mode       string
	multiplier float64
	workers    int
	timeout    time.Duration
	format     string
	debug      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.seed, "seed", "", "seed of the run, e.g. 0x2A; overrides RUNNER_SEED")
	flags.StringVar(&f.mode, "mode", "", "normal or nightly; overrides RUNNER_MODE")
	flags.Float64Var(&f.multiplier, "multiplier", 0, "nightly multiplier; overrides RUNNER_MULTIPLIER")
	flags.IntVar(&f.workers, "workers", 0, "units run concurrently; overrides RUNNER_WORKERS")
	flags.DurationVar(&f.timeout, "timeout", 0, "time limit of a single unit; overrides RUNNER_UNIT_TIMEOUT")
	flags.StringVar(&f.format, "format", "", "report format, logfmt or json; overrides RUNNER_FORMAT")
	flags.BoolVar(&f.debug, "debug", false, "debug logging; overrides RUNNER_DEBUG")
}

func (f *runFlags) apply(cmd *cobra.Command, config *runner.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		config.Seed = f.seed
	}
	if flags.Changed("mode") {
		config.Mode = f.mode
	}
	if flags.Changed("multiplier") {
		config.Multiplier = f.multiplier
	}
	if flags.Changed("workers") {
		config.Workers = f.workers
	}
	if flags.Changed("timeout") {
		config.UnitTimeout = f.timeout
	}
	if flags.Changed("format") {
		config.Format = f.format
	}
	if flags.Changed("debug") {
		config.Debug = f.debug
	}
}
