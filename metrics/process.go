package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

// Process samples resource usage of the runner process. Unit commands run as
// children and are not included.
type Process struct {
	process *process.Process

	cpu     metrics.GaugeFloat64
	rss     metrics.Gauge
	threads metrics.Gauge

	mutex       sync.Mutex
	lastCPU     float64
	lastSampled time.Time
}

// NewProcess registers runner process gauges in registry. A nil registry
// means the default one.
func NewProcess(registry metrics.Registry) (*Process, error) {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "unable to find runner process")
	}
	return &Process{
		process: p,
		cpu:     metrics.GetOrRegisterGaugeFloat64("runner.cpu.utilization", registry),
		rss:     metrics.GetOrRegisterGauge("runner.memory.rss", registry),
		threads: metrics.GetOrRegisterGauge("runner.threads", registry),
	}, nil
}

// CPUTime returns the CPU time in seconds spent by the runner process.
func (p *Process) CPUTime() (float64, error) {
	t, err := p.process.Times()
	if err != nil {
		return 0, errors.Wrap(err, "unable to get CPU times")
	}
	// Idle time must not count, so cpu.TimesStat.Total cannot be used.
	return t.User + t.System + t.Nice + t.Iowait + t.Irq + t.Softirq +
		t.Steal + t.Guest + t.GuestNice + t.Stolen, nil
}

// Sample updates the gauges. CPU utilization is averaged over the time since
// the previous sample and is not updated by the first one.
func (p *Process) Sample() error {
	seconds, err := p.CPUTime()
	if err != nil {
		return err
	}
	memory, err := p.process.MemoryInfo()
	if err != nil {
		return errors.Wrap(err, "unable to get memory usage")
	}
	threads, err := p.process.NumThreads()
	if err != nil {
		return errors.Wrap(err, "unable to count threads")
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	now := time.Now()
	if !p.lastSampled.IsZero() {
		if elapsed := now.Sub(p.lastSampled).Seconds(); elapsed > 0 {
			p.cpu.Update((seconds - p.lastCPU) / elapsed)
		}
	}
	p.lastCPU, p.lastSampled = seconds, now
	p.rss.Update(int64(memory.RSS))
	p.threads.Update(int64(threads))
	return nil
}

// Capture samples the process every interval. It blocks, so it should be
// called in a goroutine.
func (p *Process) Capture(interval time.Duration) {
	if err := p.Sample(); err != nil {
		log.WithError(err).Warn("Unable to sample runner process")
	}
	for range time.Tick(interval) {
		if err := p.Sample(); err != nil {
			log.WithError(err).Warn("Unable to sample runner process")
		}
	}
}
