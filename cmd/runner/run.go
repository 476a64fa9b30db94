package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/manifest"
	nightlymetrics "github.com/allegro/nightly-runner/metrics"
	"github.com/allegro/nightly-runner/report"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/unitlog"
)

func newRunCommand() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Run all units of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &config)
			if err := setupLogging(config); err != nil {
				return errors.Wrap(err, "failed to initialize logging")
			}
			return run(cmd.Context(), config, args[0], cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

func newSink(format string, w io.Writer) (report.Sink, error) {
	switch format {
	case "logfmt":
		return report.NewLogfmtSink(w), nil
	case "json":
		return report.NewJSONSink(w), nil
	}
	return nil, errors.Errorf("unknown report format %q", format)
}

func initialize(config runner.Config, path string) (*runctx.RunContext, *manifest.Manifest, error) {
	params, err := config.Params()
	if err != nil {
		return nil, nil, err
	}
	rc, err := runctx.Initialize(params)
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return rc, m, nil
}

func run(ctx context.Context, config runner.Config, path string, out io.Writer) error {
	log.Infof("Nightly runner (version: %s)", Version)
	sink, err := newSink(config.Format, out)
	if err != nil {
		return err
	}
	rc, m, err := initialize(config, path)
	if err != nil {
		return err
	}

	appender, err := unitlog.LogstashFromEnv()
	if err != nil {
		return err
	}
	if appender != nil {
		m.SetAppender(appender, unitlog.HostExtender(), unitlog.StaticDataExtender{
			Data: map[string]interface{}{"runner_version": Version},
		})
	}

	runID := uuid.NewRandom().String()
	if err := nightlymetrics.Init(runID); err != nil {
		return errors.Wrap(err, "failed to initialize metrics")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := report.BufferedReporter(sink, config.ReportBufferSize)
	r := runner.NewRunner(config, rc,
		runner.Metadata(m),
		runner.Reporter(reporter),
		runner.Outcomes(nightlymetrics.NewOutcomes(metrics.DefaultRegistry)),
		runner.RunID(runID),
	)
	results, runErr := r.Run(ctx, m.RunnerSuites()...)
	if err := reporter.Wait(config.ReportWaitTimeout); err != nil {
		log.WithError(err).Warn("Report incomplete")
	}
	if err := nightlymetrics.Flush(); err != nil {
		log.WithError(err).Warn("Unable to flush metrics")
	}

	var summary report.Summary
	for _, result := range results {
		_ = summary.Write(result.Entry(runID, time.Now()))
	}
	log.WithField("RunID", runID).Info(summary.String())

	if runner.AnyFailed(results) || runErr != nil {
		fmt.Fprintf(os.Stderr, "reproduce with %s\n", rc.Reproduction())
		if runErr != nil {
			return errors.Wrap(runErr, "run interrupted")
		}
		return errFailures
	}
	return nil
}

