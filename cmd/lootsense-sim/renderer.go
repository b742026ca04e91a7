package main

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/host"
)

// countingRenderer stands in for the engine's draw API.
type countingRenderer struct {
	acquired   atomic.Bool
	billboards atomic.Int64
	boxes      atomic.Int64
}

func (r *countingRenderer) Acquire() error {
	r.acquired.Store(true)
	return nil
}

func (r *countingRenderer) Release() { r.acquired.Store(false) }

func (r *countingRenderer) OriginOffset() mgl64.Vec3 { return mgl64.Vec3{} }

func (r *countingRenderer) DrawBillboard(host.DrawCall) error {
	r.billboards.Add(1)
	return nil
}

func (r *countingRenderer) DrawBox(host.DrawCall) error {
	r.boxes.Add(1)
	return nil
}

// eyeCamera follows the player at head height.
type eyeCamera struct {
	player *walker
}

func (c eyeCamera) Name() string   { return "main" }
func (c eyeCamera) Gameplay() bool { return true }

func (c eyeCamera) Position() mgl64.Vec3 {
	return c.player.Position().Add(mgl64.Vec3{0, 1.1, 0})
}
