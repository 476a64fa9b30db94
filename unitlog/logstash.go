package unitlog

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

const (
	logstashVersion      = 1
	logstashConfigPrefix = "runner_unitlog_logstash"
)

// LogstashConfig is read from RUNNER_UNITLOG_LOGSTASH_* variables.
type LogstashConfig struct {
	Protocol string `default:"tcp"`
	Address  string

	RateLimit int `split_words:"true"`
	SizeLimit int `split_words:"true"`

	TCPKeepAlive time.Duration `default:"5s" envconfig:"tcp_keep_alive"`
	TCPTimeout   time.Duration `default:"2s" envconfig:"tcp_timeout"`
}

type logstashEntry map[string]interface{}

type logstash struct {
	mutex  sync.Mutex
	writer io.Writer

	rateLimit int
	sizeLimit int
	budget    *Budget

	droppedBecauseOfRate    metrics.Counter
	droppedBecauseOfSize    metrics.Counter
	droppedBecauseOfTimeout metrics.Counter
	writeTimer              metrics.Timer
}

func (l *logstash) Append(entries <-chan Entry) {
	for entry := range entries {
		if err := l.sendEntry(entry); err != nil {
			log.WithError(err).Warn("Error appending unit logs")
		}
	}
}

func (l *logstash) formatEntry(entry Entry) logstashEntry {
	formatted := logstashEntry{}
	if timestamp, ok := entry["time"]; ok {
		formatted["@timestamp"] = timestamp
	} else {
		formatted["@timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	formatted["@version"] = logstashVersion
	formatted["message"] = entry["msg"]

	for key, value := range entry {
		if key == "msg" || key == "time" {
			continue
		}
		formatted[key] = value
	}
	return formatted
}

func (l *logstash) sendEntry(entry Entry) error {
	bytes, err := json.Marshal(l.formatEntry(entry))
	if err != nil {
		return fmt.Errorf("unable to marshal log entry: %s", err)
	}
	// Logstash reads one JSON document per line.
	bytes = append(bytes, '\n')

	unit, _ := entry["unit"].(string)
	if err := l.budget.Admit(unit, len(bytes)); err != nil {
		l.dropped(err)
		return nil
	}

	l.mutex.Lock()
	l.writeTimer.Time(func() { _, err = l.writer.Write(bytes) })
	l.mutex.Unlock()
	if err != nil {
		if e, ok := err.(net.Error); ok && e.Timeout() {
			l.droppedBecauseOfTimeout.Inc(1)
			return nil
		}
		return fmt.Errorf("unable to write to Logstash server: %s", err)
	}
	return nil
}

func (l *logstash) dropped(err error) {
	drop, ok := err.(*DropError)
	if !ok {
		return
	}
	switch drop.Reason {
	case DroppedForSize:
		l.droppedBecauseOfSize.Inc(1)
	case DroppedForRate:
		l.droppedBecauseOfRate.Inc(1)
	}
	if l.budget.Dropped(drop.Unit) == 1 {
		log.WithError(err).WithField("Unit", drop.Unit).Warn("Unit log entries dropped")
	}
}

// NewLogstash creates an appender that sends entries to Logstash through
// writer.
func NewLogstash(writer io.Writer, options ...func(*logstash) error) (Appender, error) {
	l := &logstash{
		writer:                  writer,
		droppedBecauseOfRate:    metrics.GetOrRegisterCounter("unitlog.logstash.dropped.RateExceeded", metrics.DefaultRegistry),
		droppedBecauseOfSize:    metrics.GetOrRegisterCounter("unitlog.logstash.dropped.SizeExceeded", metrics.DefaultRegistry),
		droppedBecauseOfTimeout: metrics.GetOrRegisterCounter("unitlog.logstash.dropped.Timeout", metrics.DefaultRegistry),
		writeTimer:              metrics.GetOrRegisterTimer("unitlog.logstash.WriteTimer", metrics.DefaultRegistry),
	}
	for _, option := range options {
		if err := option(l); err != nil {
			return nil, fmt.Errorf("invalid config option: %s", err)
		}
	}
	l.budget = NewBudget(l.rateLimit, l.sizeLimit)
	return l, nil
}

// LogstashRateLimit drops entries of a unit sent faster than limit per second.
func LogstashRateLimit(limit int) func(*logstash) error {
	return func(l *logstash) error {
		if limit <= 0 {
			return errors.Errorf("rate limit must be positive, got %d", limit)
		}
		l.rateLimit = limit
		return nil
	}
}

// LogstashSizeLimit drops entries longer than size bytes.
func LogstashSizeLimit(size int) func(*logstash) error {
	return func(l *logstash) error {
		if size <= 0 {
			return errors.Errorf("size limit must be positive, got %d", size)
		}
		l.sizeLimit = size
		return nil
	}
}

// LogstashFromEnv creates the Logstash appender from the environment. It
// returns nil without error when no address is configured.
func LogstashFromEnv() (Appender, error) {
	var config LogstashConfig
	if err := envconfig.Process(logstashConfigPrefix, &config); err != nil {
		return nil, errors.Wrap(err, "unable to get Logstash config from env")
	}
	if config.Address == "" {
		return nil, nil
	}
	return NewLogstashFromConfig(config)
}

// NewLogstashFromConfig dials config.Address and returns an appender writing
// to it.
func NewLogstashFromConfig(config LogstashConfig) (Appender, error) {
	log.WithFields(log.Fields{
		"Protocol":  config.Protocol,
		"Address":   config.Address,
		"RateLimit": config.RateLimit,
		"SizeLimit": config.SizeLimit,
	}).Info("Initializing Logstash appender for unit logs")

	dialer := net.Dialer{
		KeepAlive: config.TCPKeepAlive,
		Timeout:   config.TCPTimeout,
	}
	conn, err := dialer.Dial(config.Protocol, config.Address)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Logstash connection data")
	}

	var options []func(*logstash) error
	if config.RateLimit > 0 {
		options = append(options, LogstashRateLimit(config.RateLimit))
	}
	if config.SizeLimit > 0 {
		options = append(options, LogstashSizeLimit(config.SizeLimit))
	}
	return NewLogstash(conn, options...)
}
