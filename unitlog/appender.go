package unitlog

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// Appender delivers entries to their destination until the channel is closed.
// Implementations must be safe for concurrent Append calls.
type Appender interface {
	Append(entries <-chan Entry)
}

// Logrus appends entries to the standard logger. The level and message are
// read from the level and msg keys.
type Logrus struct{}

// Append implements Appender.
func (Logrus) Append(entries <-chan Entry) {
	for entry := range entries {
		level := log.InfoLevel
		if value, ok := entry["level"]; ok {
			if parsed, err := log.ParseLevel(fmt.Sprint(value)); err == nil {
				level = parsed
			}
		}
		var message string
		if value, ok := entry["msg"]; ok {
			message = fmt.Sprint(value)
		}
		fields := log.Fields{}
		for key, value := range entry {
			if key == "level" || key == "msg" || key == "time" {
				continue
			}
			fields[key] = value
		}
		// Fatal and panic levels of a unit must not stop the runner.
		if level < log.ErrorLevel {
			level = log.ErrorLevel
		}
		log.WithFields(fields).Log(level, message)
	}
}

// Forward returns a writer whose lines are scraped, extended and appended.
// Closing the writer ends forwarding; done is closed once every entry is
// appended.
func Forward(scraper Scraper, appender Appender, extenders ...Extender) (writer io.WriteCloser, done <-chan struct{}) {
	reader, pipe := io.Pipe()
	finished := make(chan struct{})
	entries := Extend(scraper.Scrape(reader), extenders...)
	go func() {
		defer close(finished)
		appender.Append(entries)
	}()
	return pipe, finished
}
