package marker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/queue"
)

// Config bounds the per-tick work of the repository.
type Config struct {
	// RechecksPerTick caps how many markers Revalidate looks at per call.
	RechecksPerTick int
	// RangeGrace is added to the active radius before a marker counts as out of range.
	RangeGrace float64
	// Timeout is how long, in seconds, a marker survives without confirmation.
	Timeout float64
}

// Validator re-checks a tracked position against the world.
type Validator interface {
	StillValid(w host.World, p host.Pos) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(w host.World, p host.Pos) bool

func (f ValidatorFunc) StillValid(w host.World, p host.Pos) bool {
	return f(w, p)
}

// RevalidateStats summarises one Revalidate call.
type RevalidateStats struct {
	Checked    int
	Refreshed  int
	OutOfRange int
	Invalid    int
	Missing    int
	Panics     int
}

// Removed is the number of markers dropped by the call.
func (s RevalidateStats) Removed() int {
	return s.OutOfRange + s.Invalid
}

// Repository is the concurrent marker map plus its FIFO re-check queue.
// The map lock and the queue lock are never held together.
type Repository struct {
	cfg     Config
	mu      sync.RWMutex
	markers map[host.Pos]Marker
	recheck *queue.UniqueQueue[host.Pos]
	logger  *slog.Logger
}

// NewRepository creates an empty repository. A nil logger uses slog.Default().
func NewRepository(cfg Config, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		cfg:     cfg,
		markers: make(map[host.Pos]Marker),
		recheck: queue.NewUnique[host.Pos](),
		logger:  logger,
	}
}

// ApplyUpdates inserts or overwrites every marker in batch under one write lock,
// so readers see either none or all of it, then queues each position for re-check.
func (r *Repository) ApplyUpdates(batch []Marker) {
	if len(batch) == 0 {
		return
	}

	keys := make([]host.Pos, 0, len(batch))
	r.mu.Lock()
	for _, m := range batch {
		r.markers[m.Pos] = m
		keys = append(keys, m.Pos)
	}
	r.mu.Unlock()

	r.recheck.Push(keys...)
}

// Revalidate re-checks up to RechecksPerTick queued positions in FIFO order.
// Markers farther than activeRadius+RangeGrace from player, or that v rejects,
// are removed. Confirmed markers are refreshed and queued again.
func (r *Repository) Revalidate(w host.World, player mgl64.Vec3, activeRadius, now float64, v Validator) RevalidateStats {
	var stats RevalidateStats

	limit := min(r.cfg.RechecksPerTick, r.recheck.Len())
	reach := activeRadius + r.cfg.RangeGrace
	reachSq := reach * reach

	for i := 0; i < limit; i++ {
		p, ok := r.recheck.Pop()
		if !ok {
			break
		}

		r.mu.RLock()
		_, exists := r.markers[p]
		r.mu.RUnlock()
		if !exists {
			stats.Missing++
			continue
		}
		stats.Checked++

		if p.DistSq(player) > reachSq {
			r.remove(p)
			stats.OutOfRange++
			continue
		}

		valid, err := r.validate(v, w, p)
		if err != nil {
			stats.Panics++
			r.logger.Warn("Revalidation panicked, dropping marker", "pos", p.String(), "error", err)
		}
		if !valid {
			r.remove(p)
			stats.Invalid++
			continue
		}

		if r.refresh(p, now) {
			stats.Refreshed++
			r.recheck.Push(p)
		}
	}
	return stats
}

// validate shields the pass from host panics; a panic counts as invalid.
func (r *Repository) validate(v Validator, w host.World, p host.Pos) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			err = fmt.Errorf("validator panicked at %s: %v", p, rec)
		}
	}()
	return v.StillValid(w, p), nil
}

// refresh replaces the marker only if it is still tracked, so a concurrent
// Clear is not undone.
func (r *Repository) refresh(p host.Pos, now float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[p]
	if !ok {
		return false
	}
	r.markers[p] = m.Refreshed(now)
	return true
}

func (r *Repository) remove(p host.Pos) {
	r.mu.Lock()
	delete(r.markers, p)
	r.mu.Unlock()
}

// Prune removes markers not confirmed within Timeout seconds of now.
func (r *Repository) Prune(now float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for p, m := range r.markers {
		if now-m.LastSeen > r.cfg.Timeout {
			delete(r.markers, p)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of all markers. Order is unspecified.
func (r *Repository) Snapshot() []Marker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, m)
	}
	return out
}

// Get returns the marker at p.
func (r *Repository) Get(p host.Pos) (Marker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markers[p]
	return m, ok
}

// Clear drops every marker and pending re-check.
func (r *Repository) Clear() {
	r.mu.Lock()
	clear(r.markers)
	r.mu.Unlock()
	r.recheck.Clear()
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markers)
}

// Pending is the number of positions waiting for re-check.
func (r *Repository) Pending() int {
	return r.recheck.Len()
}
