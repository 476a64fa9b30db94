package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	jsoniter "github.com/json-iterator/go"
)

// Sink writes entries to their destination.
type Sink interface {
	Write(Entry) error
}

// LogfmtSink writes one logfmt record per entry.
//
// See: https://brandur.org/logfmt
type LogfmtSink struct {
	mutex   sync.Mutex
	encoder *logfmt.Encoder
}

// NewLogfmtSink returns a sink writing to w.
func NewLogfmtSink(w io.Writer) *LogfmtSink {
	return &LogfmtSink{encoder: logfmt.NewEncoder(w)}
}

// Write implements Sink.
func (s *LogfmtSink) Write(e Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keyvals := []interface{}{
		"time", e.Time.Format(time.RFC3339Nano),
		"status", e.Status(),
		"unit", e.Unit.String(),
		"seed", e.RunSeed.String(),
		"unit_seed", e.DerivedSeed.String(),
		"duration", e.Duration,
	}
	if e.Detail != "" {
		keyvals = append(keyvals, "detail", e.Detail)
	}
	keyvals = append(keyvals, "run", e.RunID)
	if err := s.encoder.EncodeKeyvals(keyvals...); err != nil {
		return err
	}
	return s.encoder.EndRecord()
}

type jsonEntry struct {
	ID          string  `json:"id"`
	RunID       string  `json:"run_id"`
	Time        string  `json:"time"`
	Status      Status  `json:"status"`
	Outcome     string  `json:"outcome"`
	Unit        string  `json:"unit"`
	Suite       string  `json:"suite"`
	Seed        string  `json:"seed"`
	UnitSeed    string  `json:"unit_seed"`
	Duration    float64 `json:"duration_seconds"`
	Detail      string  `json:"detail,omitempty"`
	Reproducing string  `json:"reproduce_with"`
}

// JSONSink writes one JSON object per line and entry.
type JSONSink struct {
	mutex   sync.Mutex
	encoder *jsoniter.Encoder
}

// NewJSONSink returns a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{encoder: jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)}
}

// Write implements Sink.
func (s *JSONSink) Write(e Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.encoder.Encode(jsonEntry{
		ID:          e.ID,
		RunID:       e.RunID,
		Time:        e.Time.Format(time.RFC3339Nano),
		Status:      e.Status(),
		Outcome:     e.Outcome.String(),
		Unit:        e.Unit.String(),
		Suite:       e.Unit.Suite,
		Seed:        e.RunSeed.String(),
		UnitSeed:    e.DerivedSeed.String(),
		Duration:    e.Duration.Seconds(),
		Detail:      e.Detail,
		Reproducing: e.reproduction(),
	})
}

func (e Entry) reproduction() string {
	if e.Reproduce != "" {
		return e.Reproduce
	}
	return fmt.Sprintf("RUNNER_SEED=%s", e.RunSeed)
}

// MultiSink writes every entry to all of its sinks.
type MultiSink []Sink

// Write implements Sink. All sinks are written even if some fail; the first
// error is returned.
func (m MultiSink) Write(e Entry) error {
	var first error
	for _, sink := range m {
		if err := sink.Write(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Summary counts entries by status.
type Summary struct {
	mutex  sync.Mutex
	counts map[Status]int
	total  int
}

// Write implements Sink.
func (s *Summary) Write(e Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.counts == nil {
		s.counts = make(map[Status]int)
	}
	s.counts[e.Status()]++
	s.total++
	return nil
}

// Count returns the number of entries with the given status.
func (s *Summary) Count(status Status) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.counts[status]
}

// Total returns the number of written entries.
func (s *Summary) Total() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.total
}

func (s *Summary) String() string {
	return fmt.Sprintf("Tests summary: %d units, %d passed, %d failed, %d ignored, %d ignored by assumption",
		s.Total(), s.Count(StatusPassed), s.Count(StatusFailed), s.Count(StatusIgnored), s.Count(StatusAssumption))
}
