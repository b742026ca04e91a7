// Package monitor is the profiler: it aggregates per-tick timing samples and
// periodically publishes a summary to a status file, InfluxDB and the
// snapshot table.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/lootsense/extension/internal/queue"
	"github.com/lootsense/extension/internal/storage"
)

// maxPendingSamples bounds memory when the flush loop stalls.
const maxPendingSamples = 4096

// Sample is one controller tick as seen by the profiler.
type Sample struct {
	Time       time.Time
	Scan       time.Duration
	Revalidate time.Duration
	Draw       time.Duration
	Scanned    int
	Errors     int
	Markers    int
	Pending    int
	Radius     float64
}

// Summary aggregates the samples of one interval.
type Summary struct {
	Time            time.Time `json:"time"`
	SessionID       string    `json:"sessionId"`
	Ticks           int       `json:"ticks"`
	Dropped         int       `json:"dropped"`
	ScanAvgMs       float64   `json:"scanAvgMs"`
	ScanMaxMs       float64   `json:"scanMaxMs"`
	RevalidateAvgMs float64   `json:"revalidateAvgMs"`
	DrawAvgMs       float64   `json:"drawAvgMs"`
	Scanned         int       `json:"scanned"`
	Errors          int       `json:"errors"`
	Markers         int       `json:"markers"`
	Pending         int       `json:"pending"`
	Radius          float64   `json:"radius"`
}

// PointWriter is the part of influx.Manager the profiler needs.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Logger    *slog.Logger
	SessionID string
	Interval  time.Duration
	// StatusFile is rewritten on every flush when set.
	StatusFile string
	Influx     PointWriter
	Snapshots  storage.SnapshotRecorder
}

// Service collects samples and publishes summaries.
type Service struct {
	deps    Dependencies
	samples *queue.Queue[Sample]

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	last      Summary
}

// NewService creates a stopped profiler.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:    deps,
		samples: queue.New[Sample](maxPendingSamples),
	}
}

// Record queues a sample. It never blocks on I/O.
func (s *Service) Record(sample Sample) {
	s.samples.Push(sample)
}

// IsRunning returns whether the publish loop is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent summary.
func (s *Service) Last() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Start starts the publish goroutine. Starting a running service is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	s.deps.Logger.Debug("Starting profiler", "interval", s.deps.Interval)
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				if _, err := s.Flush(now); err != nil {
					s.deps.Logger.Warn("Profiler flush failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// Stop stops the publish goroutine and waits for it to exit. Pending samples
// are discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	s.samples.Clear()
}

// Flush aggregates all queued samples and publishes the summary. Every sink
// is attempted; their errors are joined.
func (s *Service) Flush(now time.Time) (Summary, error) {
	sum := Summarize(s.samples.Drain())
	sum.Time = now
	sum.SessionID = s.deps.SessionID
	sum.Dropped = s.samples.Dropped()

	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()

	if sum.Ticks == 0 {
		return sum, nil
	}

	var errs []error
	if s.deps.StatusFile != "" {
		errs = append(errs, s.writeStatus(sum))
	}
	if s.deps.Influx != nil {
		errs = append(errs, s.deps.Influx.WritePoint(Point(sum)))
	}
	if s.deps.Snapshots != nil {
		errs = append(errs, s.deps.Snapshots.RecordSnapshot(storage.Snapshot{
			SessionID: sum.SessionID,
			TakenAt:   now,
			Payload:   sum,
		}))
	}
	return sum, errors.Join(errs...)
}

func (s *Service) writeStatus(sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// Summarize aggregates samples. Gauges (markers, pending, radius) take the
// latest sample.
func Summarize(samples []Sample) Summary {
	var sum Summary
	if len(samples) == 0 {
		return sum
	}

	var scan, reval, draw time.Duration
	for _, smp := range samples {
		scan += smp.Scan
		reval += smp.Revalidate
		draw += smp.Draw
		sum.ScanMaxMs = max(sum.ScanMaxMs, ms(smp.Scan))
		sum.Scanned += smp.Scanned
		sum.Errors += smp.Errors
	}
	n := len(samples)
	latest := samples[n-1]

	sum.Ticks = n
	sum.ScanAvgMs = ms(scan) / float64(n)
	sum.RevalidateAvgMs = ms(reval) / float64(n)
	sum.DrawAvgMs = ms(draw) / float64(n)
	sum.Markers = latest.Markers
	sum.Pending = latest.Pending
	sum.Radius = latest.Radius
	return sum
}

// Point converts a summary to an InfluxDB point.
func Point(sum Summary) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"lootsense_profile",
		map[string]string{"session": sum.SessionID},
		map[string]any{
			"ticks":             sum.Ticks,
			"scan_avg_ms":       sum.ScanAvgMs,
			"scan_max_ms":       sum.ScanMaxMs,
			"revalidate_avg_ms": sum.RevalidateAvgMs,
			"draw_avg_ms":       sum.DrawAvgMs,
			"scanned":           sum.Scanned,
			"errors":            sum.Errors,
			"markers":           sum.Markers,
			"pending":           sum.Pending,
			"radius":            sum.Radius,
			"dropped":           sum.Dropped,
		},
		sum.Time,
	)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
