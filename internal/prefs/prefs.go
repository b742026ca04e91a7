// Package prefs holds the player-tunable overlay settings and their
// validation rules.
package prefs

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Mode selects how markers are drawn.
type Mode string

const (
	ModeIcon Mode = "icon"
	ModeBox  Mode = "box"
)

const (
	MinSize = 10.0
	MaxSize = 300.0

	MinOpacity = 0.0
	MaxOpacity = 100.0

	// iconBaseScale and boxBaseScale are the world-unit scales at 100% size.
	iconBaseScale = 0.5
	boxBaseScale  = 1.02
)

// Limits bounds the range bonus. It comes from the rank configuration.
type Limits struct {
	BonusMin int
	BonusMax int
}

// DefaultLimits matches the shipped rank configuration.
var DefaultLimits = Limits{BonusMin: -10, BonusMax: 30}

// Preferences is a validated settings value.
type Preferences struct {
	Mode Mode
	// Size is a percentage of the base highlight scale.
	Size float64
	// Opacity is 0..100.
	Opacity    float64
	Color      colorful.Color
	RangeBonus int
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Preferences {
	gold, _ := colorful.Hex("#FFD700")
	return Preferences{
		Mode:       ModeIcon,
		Size:       100,
		Opacity:    60,
		Color:      gold,
		RangeBonus: 0,
	}
}

// Normalize clamps every field into its valid range and replaces values that
// cannot be clamped with defaults.
func (p Preferences) Normalize(l Limits) Preferences {
	d := Defaults()
	if p.Mode != ModeIcon && p.Mode != ModeBox {
		p.Mode = d.Mode
	}
	p.Size = clampFloat(p.Size, MinSize, MaxSize, d.Size)
	p.Opacity = clampFloat(p.Opacity, MinOpacity, MaxOpacity, d.Opacity)
	if !p.Color.IsValid() {
		p.Color = d.Color
	}
	p.RangeBonus = ClampBonus(p.RangeBonus, l)
	return p
}

// IconScale is the billboard scale in world units.
func (p Preferences) IconScale() float64 {
	return iconBaseScale * p.Size / 100
}

// BoxScale is the box highlight scale relative to the marker geometry.
func (p Preferences) BoxScale() float64 {
	return boxBaseScale * p.Size / 100
}

// Alpha is the opacity as a 0..1 factor.
func (p Preferences) Alpha() float64 {
	return p.Opacity / 100
}

// ColorHex is the colour as "#rrggbb".
func (p Preferences) ColorHex() string {
	return p.Color.Clamped().Hex()
}

func (p Preferences) String() string {
	return fmt.Sprintf("mode=%s size=%g%% opacity=%g color=%s range=%+d",
		p.Mode, p.Size, p.Opacity, p.ColorHex(), p.RangeBonus)
}

// ClampBonus limits a range bonus to l.
func ClampBonus(v int, l Limits) int {
	return min(max(v, l.BonusMin), l.BonusMax)
}

func clampFloat(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return min(max(v, lo), hi)
}
