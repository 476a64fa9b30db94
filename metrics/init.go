package metrics

import (
	"fmt"
	"net"
	"strings"
	"time"

	graphite "github.com/cyberdelia/go-metrics-graphite"
	"github.com/kelseyhightower/envconfig"
	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/runenv"
)

const graphiteConfigEnvPrefix = "runner_graphite"

// flushInterval is how often metrics are shipped to Graphite or logged.
var flushInterval = time.Minute

var (
	runnerProcess *Process
	flush         = logOnce
)

// Init processes the environment in search of Graphite configuration and
// starts shipping metrics of the default registry. Without Graphite host the
// metrics are periodically logged instead.
func Init(runID string) error {
	var cfg GraphiteConfig
	if err := envconfig.Process(graphiteConfigEnvPrefix, &cfg); err != nil {
		return fmt.Errorf("invalid graphite configuration: %s", err)
	}

	p, err := NewProcess(metrics.DefaultRegistry)
	if err != nil {
		log.WithError(err).Warn("Runner process metrics disabled")
	} else {
		runnerProcess = p
		go p.Capture(flushInterval)
	}
	metrics.RegisterRuntimeMemStats(metrics.DefaultRegistry)
	go metrics.CaptureRuntimeMemStats(metrics.DefaultRegistry, flushInterval)

	if cfg.Host == "" {
		log.Info("No metric storage specified - using stderr to periodically print metrics")
		SetupStderr()
		return nil
	}
	prefix, err := buildUniquePrefix(cfg.Prefix, runID)
	if err != nil {
		return err
	}
	if err := SetupGraphite(cfg, prefix); err != nil {
		return err
	}
	log.Infof("Metrics will be sent to Graphite with prefix: %s", prefix)
	return nil
}

// GraphiteConfig holds basic Graphite configuration.
type GraphiteConfig struct {
	Host   string
	Port   int    `default:"2003"`
	Prefix string `default:"allegro.nightly-runner"`
}

// SetupGraphite will configure metric system to periodically send metrics to
// Graphite.
func SetupGraphite(cfg GraphiteConfig, prefix string) error {
	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("invalid Graphite address: %s", err)
	}
	config := graphite.Config{
		Addr:          addr,
		Registry:      metrics.DefaultRegistry,
		FlushInterval: flushInterval,
		DurationUnit:  time.Nanosecond,
		Prefix:        prefix,
		Percentiles:   []float64{0.5, 0.75, 0.95, 0.99, 0.999},
	}
	go graphite.WithConfig(config)
	flush = func() error {
		return graphite.Once(config)
	}
	return nil
}

// SetupStderr will configure metric system to periodically print metrics on
// stderr.
func SetupStderr() {
	go metrics.Log(metrics.DefaultRegistry, flushInterval, log.StandardLogger())
	flush = logOnce
}

// Flush ships the current values of all metrics once, so that the end of a
// run is reported even when it is shorter than the flush interval.
func Flush() error {
	if runnerProcess != nil {
		if err := runnerProcess.Sample(); err != nil {
			log.WithError(err).Warn("Unable to sample runner process")
		}
	}
	return flush()
}

func logOnce() error {
	WriteOnce(metrics.DefaultRegistry, log.StandardLogger())
	return nil
}

// WriteOnce logs a single entry per metric of registry.
func WriteOnce(registry metrics.Registry, logger log.FieldLogger) {
	registry.Each(func(name string, i interface{}) {
		entry := logger.WithField("Metric", name)
		switch metric := i.(type) {
		case metrics.Counter:
			entry.WithField("Count", metric.Count()).Info("counter")
		case metrics.Gauge:
			entry.WithField("Value", metric.Value()).Info("gauge")
		case metrics.GaugeFloat64:
			entry.WithField("Value", metric.Value()).Info("gauge")
		case metrics.Timer:
			t := metric.Snapshot()
			entry.WithFields(log.Fields{
				"Count": t.Count(),
				"Mean":  time.Duration(t.Mean()),
				"Max":   time.Duration(t.Max()),
				"P95":   time.Duration(t.Percentile(0.95)),
			}).Info("timer")
		case metrics.Histogram:
			h := metric.Snapshot()
			entry.WithFields(log.Fields{
				"Count": h.Count(),
				"Mean":  h.Mean(),
				"Max":   h.Max(),
			}).Info("histogram")
		}
	})
}

func buildUniquePrefix(basePrefix, runID string) (string, error) {
	hostname, err := runenv.Hostname()
	if err != nil {
		return "", fmt.Errorf("unable to get hostname for metrics key: %s", err)
	}
	return fmt.Sprintf("%s.%s.%s", basePrefix, normalizeValue(hostname), normalizeValue(runID)), nil
}

func normalizeValue(value string) string {
	return strings.Replace(value, ".", "_", -1)
}
