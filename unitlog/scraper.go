package unitlog

import (
	"bufio"
	"bytes"
	"io"

	"github.com/go-logfmt/logfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Output formats understood by ScraperFor.
const (
	FormatText   = "text"
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
)

var json = jsoniter.ConfigFastest

// Scraper parses log lines read from a reader. The returned channel is closed
// when the reader is exhausted.
type Scraper interface {
	Scrape(io.Reader) <-chan Entry
}

// ScraperFor returns the scraper of a structured format.
func ScraperFor(format string, keyFilter Filter) (Scraper, error) {
	switch format {
	case FormatLogfmt:
		return &LogFmt{KeyFilter: keyFilter}, nil
	case FormatJSON:
		return &JSON{KeyFilter: keyFilter}, nil
	}
	return nil, errors.Errorf("no scraper for %q output", format)
}

// Filter decides which keys are dropped while scraping.
type Filter interface {
	Match([]byte) bool
}

// FilterFunc is an adapter to allow the use of ordinary functions as filters.
type FilterFunc func([]byte) bool

// Match calls f(value).
func (f FilterFunc) Match(value []byte) bool {
	return f(value)
}

// ValueFilter matches the listed values.
type ValueFilter struct {
	Values [][]byte
}

// Match returns true if value is on the list.
func (f ValueFilter) Match(value []byte) bool {
	for _, v := range f.Values {
		if bytes.Equal(v, value) {
			return true
		}
	}
	return false
}

// LogFmt scrapes logfmt records.
//
// See: https://brandur.org/logfmt
type LogFmt struct {
	KeyFilter Filter
}

// Scrape implements Scraper.
func (l *LogFmt) Scrape(reader io.Reader) <-chan Entry {
	decoder := logfmt.NewDecoder(reader)
	entries := make(chan Entry)

	go func() {
		defer close(entries)
		for decoder.ScanRecord() {
			entry := Entry{}
			for decoder.ScanKeyval() {
				key := decoder.Key()
				if l.KeyFilter != nil && l.KeyFilter.Match(key) {
					continue
				}
				entry[string(key)] = string(decoder.Value())
			}
			if len(entry) > 0 {
				entries <- entry
			}
		}
		if err := decoder.Err(); err != nil {
			log.WithError(err).Warn("Unit output scraping failed")
			_, _ = io.Copy(io.Discard, reader)
		}
	}()

	return entries
}

// JSON scrapes one JSON object per line. Lines that are not objects are
// skipped.
type JSON struct {
	KeyFilter Filter
}

// Scrape implements Scraper.
func (j *JSON) Scrape(reader io.Reader) <-chan Entry {
	scanner := bufio.NewScanner(reader)
	entries := make(chan Entry)

	go func() {
		defer close(entries)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			entry := Entry{}
			if err := json.Unmarshal(line, &entry); err != nil {
				log.WithError(err).Debug("Unable to unmarshal unit output - skipping line")
				continue
			}
			if j.KeyFilter != nil {
				for key := range entry {
					if j.KeyFilter.Match([]byte(key)) {
						delete(entry, key)
					}
				}
			}
			entries <- entry
		}
		if err := scanner.Err(); err != nil {
			log.WithError(err).Warn("Unit output scraping failed")
			_, _ = io.Copy(io.Discard, reader)
		}
	}()

	return entries
}
