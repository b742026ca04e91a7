package logging

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Deduper runs an action at most once per key, or once per interval when
// interval is non-zero. Host API failures repeat every tick; this keeps them
// from flooding the log.
type Deduper struct {
	mu       sync.Mutex
	interval time.Duration
	keys     map[string]*rate.Sometimes
}

// NewDeduper creates a Deduper. interval == 0 means once for the session.
func NewDeduper(interval time.Duration) *Deduper {
	return &Deduper{
		interval: interval,
		keys:     make(map[string]*rate.Sometimes),
	}
}

// Do runs f if key has not fired yet (or its interval elapsed).
func (d *Deduper) Do(key string, f func()) {
	d.mu.Lock()
	s, ok := d.keys[key]
	if !ok {
		s = &rate.Sometimes{First: 1, Interval: d.interval}
		d.keys[key] = s
	}
	d.mu.Unlock()
	s.Do(f)
}

// Warn logs msg at warn level once per key.
func (d *Deduper) Warn(logger *slog.Logger, key, msg string, args ...any) {
	d.Do(key, func() {
		logger.Warn(msg, args...)
	})
}

// Reset forgets all keys, e.g. when the system is re-enabled.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = make(map[string]*rate.Sometimes)
}
