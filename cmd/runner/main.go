package main

import (
	"fmt"
	"os"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/getsentry/raven-go"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/runenv"
)

// Version designates the version of application.
var Version string

// errFailures makes the process exit with 1 without printing usage.
var errFailures = errors.New("some units failed")

func loadConfig() (runner.Config, error) {
	var config runner.Config
	if err := envconfig.Process(runner.EnvironmentPrefix, &config); err != nil {
		return config, errors.Wrap(err, "failed to load runner configuration")
	}
	return config, nil
}

func setupLogging(config runner.Config) error {
	if config.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return initSentry(config)
}

func initSentry(config runner.Config) error {
	if len(config.SentryDSN) == 0 {
		return nil
	}

	environment := runenv.Environment()
	if environment == runenv.LocalEnv {
		log.Infof("Disabling Sentry integration for the %s environment", environment)
		return nil
	}
	log.Infof("Enabling Sentry integration for the %s environment", environment)

	client, err := raven.New(config.SentryDSN)
	if err != nil {
		return fmt.Errorf("Unable to setup raven client: %s", err)
	}
	client.SetRelease(Version)
	client.SetEnvironment(string(environment))

	sentryHook, err := logrus_sentry.NewWithClientSentryHook(client, []log.Level{
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
	})
	if err != nil {
		return fmt.Errorf("Unable to setup sentry hook for logger: %s", err)
	}
	sentryHook.Timeout = time.Second
	log.AddHook(sentryHook)

	return nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nightly-runner",
		Short:         "Runs test units with seeded, mode-scaled randomness",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newListCommand(), newSeedCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if err != errFailures {
			log.WithError(err).Error("Runner exited with error")
		}
		os.Exit(1)
	}
}
