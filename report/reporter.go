package report

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// writeAttempts is the number of times an entry is written before it is
	// dropped.
	writeAttempts = 3
	retryDelay    = 100 * time.Millisecond
	pollInterval  = 10 * time.Millisecond
)

// Reporter is an interface for types responsible for delivering unit entries
// to a sink. Implementations should handle the retry logic when a sink fails.
type Reporter interface {
	// Report queues an entry for delivery. It should be a non-blocking call.
	Report(Entry)

	// Wait continues delivering entries until all of them are written or the
	// given duration is exceeded. The reporter must not be used afterwards.
	Wait(time.Duration) error
}

type bufferedReporter struct {
	buffer    chan Entry
	sink      Sink
	pending   int64
	dropped   int64
	ctx       context.Context
	ctxCancel context.CancelFunc
}

func (r *bufferedReporter) Report(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewRandom().String()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	atomic.AddInt64(&r.pending, 1)
	r.buffer <- entry
}

func (r *bufferedReporter) Wait(timeout time.Duration) error {
	defer r.ctxCancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	start := time.Now()

	for range ticker.C {
		pending := atomic.LoadInt64(&r.pending)
		if pending == 0 {
			if dropped := atomic.LoadInt64(&r.dropped); dropped > 0 {
				return fmt.Errorf("%d report entries could not be written", dropped)
			}
			return nil
		} else if time.Since(start) >= timeout {
			return fmt.Errorf("timeout during report buffer flushing, %d entries remained", pending)
		}
	}
	return nil
}

func (r *bufferedReporter) loop() {
	go func() {
		for {
			select {
			case entry := <-r.buffer:
				r.write(entry)
				atomic.AddInt64(&r.pending, -1)
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

func (r *bufferedReporter) write(entry Entry) {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = r.sink.Write(entry); err == nil {
			return
		}
		log.WithError(err).WithFields(log.Fields{
			"Unit":    entry.Unit,
			"Attempt": attempt,
		}).Warn("Error writing report entry, retrying")
		time.Sleep(retryDelay)
	}
	atomic.AddInt64(&r.dropped, 1)
	log.WithError(err).WithField("Unit", entry.Unit).Error("Dropping report entry")
}

// BufferedReporter returns a reporter implementation that keeps entries in a
// buffered channel (to allow non-blocking calls to the Report function). It
// writes buffered entries to sink in a background goroutine until Wait is
// called.
func BufferedReporter(sink Sink, bufferSize int) Reporter {
	ctx, ctxCancel := context.WithCancel(context.Background())
	reporter := &bufferedReporter{
		buffer:    make(chan Entry, bufferSize),
		sink:      sink,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}
	reporter.loop()
	return reporter
}
