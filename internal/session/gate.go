package session

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// movementGate decides when a scan pass may run. A pass, once started, runs to
// completion. After that the gate stays closed until the player moves more
// than the threshold from where the pass started, or the radius changes.
type movementGate struct {
	mu          sync.Mutex
	thresholdSq float64
	inPass      bool
	completed   bool
	origin      mgl64.Vec3
	radius      float64
}

func newMovementGate(threshold float64) *movementGate {
	return &movementGate{thresholdSq: threshold * threshold}
}

// Allow reports whether a scan may run now, and whether it starts a new pass
// (the scanner should restart from the nearest offset).
func (g *movementGate) Allow(pos mgl64.Vec3, radius float64) (allow, restart bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inPass && radius == g.radius {
		return true, false
	}
	if g.completed && radius == g.radius {
		d := pos.Sub(g.origin)
		if d.Dot(d) <= g.thresholdSq {
			return false, false
		}
	}

	g.inPass = true
	g.completed = false
	g.origin = pos
	g.radius = radius
	return true, true
}

// Complete closes the gate until the player moves.
func (g *movementGate) Complete() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inPass {
		g.inPass = false
		g.completed = true
	}
}

// Reset forgets the last pass; the next Allow starts a fresh one.
func (g *movementGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inPass = false
	g.completed = false
}

// state returns a label for status output.
func (g *movementGate) state() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.inPass:
		return "scanning"
	case g.completed:
		return "waiting for movement"
	default:
		return "idle"
	}
}
