// Package overlay draws the marker highlights for each gameplay camera.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/logging"
	"github.com/lootsense/extension/internal/marker"
	"github.com/lootsense/extension/internal/prefs"
)

// Source provides the markers for a pass.
type Source interface {
	Snapshot() []marker.Marker
}

// Settings provides the current visual preferences.
type Settings interface {
	Current() prefs.Preferences
}

// Stats are cumulative draw counters.
type Stats struct {
	Passes      int64
	Skipped     int64
	Drawn       int64
	DrawErrors  int64
	PassPanics  int64
	LastMarkers int
	LastPass    time.Duration
}

// Overlay issues one draw per marker per eligible camera.
type Overlay struct {
	renderer host.Renderer
	source   Source
	settings Settings
	logger   *slog.Logger
	dedupe   *logging.Deduper

	enabled  atomic.Bool
	lastPass atomic.Int64

	// mu serializes passes and the renderer primitives.
	mu       sync.Mutex
	acquired bool
	failed   bool

	// statsMu is held only to fold a finished pass in, never while drawing.
	statsMu sync.Mutex
	stats   Stats
}

// New creates an enabled overlay. A nil logger uses slog.Default().
func New(r host.Renderer, src Source, settings Settings, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Overlay{
		renderer: r,
		source:   src,
		settings: settings,
		logger:   logger,
		dedupe:   logging.NewDeduper(0),
	}
	o.enabled.Store(true)
	return o
}

// SetEnabled turns drawing on or off. Disabling does not release primitives.
func (o *Overlay) SetEnabled(on bool) {
	o.enabled.Store(on)
}

func (o *Overlay) Enabled() bool {
	return o.enabled.Load()
}

// OnCameraRendered is the per-camera render hook.
func (o *Overlay) OnCameraRendered(cam host.Camera) {
	if !o.enabled.Load() || o.renderer == nil || cam == nil || !cam.Gameplay() {
		o.skip()
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ensureAcquired() {
		o.skip()
		return
	}

	start := time.Now()
	n, failed, err := o.drawPass(cam)
	took := time.Since(start)
	o.lastPass.Store(int64(took))
	if err != nil {
		o.dedupe.Warn(o.logger, "pass:"+err.Error(), "Draw pass aborted", "camera", cam.Name(), "error", err)
	}

	o.statsMu.Lock()
	o.stats.Passes++
	o.stats.Drawn += int64(n)
	o.stats.DrawErrors += int64(failed)
	o.stats.LastMarkers = n
	o.stats.LastPass = took
	if err != nil {
		o.stats.PassPanics++
	}
	o.statsMu.Unlock()
}

func (o *Overlay) skip() {
	o.statsMu.Lock()
	o.stats.Skipped++
	o.statsMu.Unlock()
}

// ensureAcquired lazily creates renderer primitives. A failure is remembered
// until Release so it is only attempted and logged once.
func (o *Overlay) ensureAcquired() bool {
	if o.acquired {
		return true
	}
	if o.failed {
		return false
	}
	if err := o.acquire(); err != nil {
		o.failed = true
		o.dedupe.Warn(o.logger, "acquire", "Renderer unavailable, highlights disabled", "error", err)
		return false
	}
	o.acquired = true
	return true
}

func (o *Overlay) acquire() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("acquire panicked: %v", rec)
		}
	}()
	return o.renderer.Acquire()
}

// drawPass renders one snapshot and counts the calls drawn and failed. A
// panic aborts the pass only.
func (o *Overlay) drawPass(cam host.Camera) (n, failed int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	markers := o.source.Snapshot()
	if len(markers) == 0 {
		return 0, 0, nil
	}
	p := o.settings.Current()
	origin := o.renderer.OriginOffset()
	eye := cam.Position()

	for _, m := range markers {
		call := host.DrawCall{
			Position: m.Pos.Vec().Add(m.LocalCenter).Add(origin),
			Color:    p.Color,
			Alpha:    p.Alpha(),
			Geometry: m.Geometry.ID,
		}

		var drawErr error
		if p.Mode == prefs.ModeBox {
			call.Scale = p.BoxScale()
			call.Rotation = mgl64.QuatIdent()
			if !m.Geometry.Fallback {
				call.Rotation = m.Rotation
			}
			drawErr = o.renderer.DrawBox(call)
		} else {
			call.Scale = p.IconScale()
			call.Rotation = billboard(call.Position, eye.Add(origin))
			drawErr = o.renderer.DrawBillboard(call)
		}

		if drawErr != nil {
			failed++
			o.dedupe.Warn(o.logger, "draw:"+drawErr.Error(), "Draw call failed", "pos", m.Pos.String(), "error", drawErr)
			continue
		}
		n++
	}
	return n, failed, nil
}

// billboard orients a quad at pos to face eye, keeping world up.
func billboard(pos, eye mgl64.Vec3) mgl64.Quat {
	dir := eye.Sub(pos)
	if dir.Len() < 1e-6 {
		return mgl64.QuatIdent()
	}
	up := mgl64.Vec3{0, 1, 0}
	if d := dir.Normalize(); d.Cross(up).Len() < 1e-6 {
		up = mgl64.Vec3{0, 0, 1}
	}
	return mgl64.QuatLookAtV(pos, eye, up)
}

// Release frees renderer primitives and clears a remembered acquire failure.
func (o *Overlay) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.acquired && o.renderer != nil {
		o.renderer.Release()
	}
	o.acquired = false
	o.failed = false
	o.dedupe.Reset()
}

// LastDrawDuration is the wall-clock time of the most recent pass.
func (o *Overlay) LastDrawDuration() time.Duration {
	return time.Duration(o.lastPass.Load())
}

// Stats returns a copy of the counters as of the last finished pass.
func (o *Overlay) Stats() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}
