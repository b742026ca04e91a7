package prefs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidToken is returned for command arguments that cannot be parsed.
var ErrInvalidToken = errors.New("invalid value")

var namedColors = map[string]string{
	"gold":    "#FFD700",
	"yellow":  "#FFFF00",
	"orange":  "#FFA500",
	"red":     "#FF0000",
	"green":   "#00FF00",
	"lime":    "#32CD32",
	"cyan":    "#00FFFF",
	"blue":    "#1E90FF",
	"purple":  "#A020F0",
	"magenta": "#FF00FF",
	"pink":    "#FF69B4",
	"white":   "#FFFFFF",
}

// ParseOpacity reads a 0..100 opacity. Out-of-range numbers are clamped and
// reported through clamped.
func ParseOpacity(tok string) (v float64, clamped bool, err error) {
	return parseClamped(tok, "opacity", MinOpacity, MaxOpacity)
}

// ParseSize reads a size percentage, with or without a trailing '%'.
func ParseSize(tok string) (v float64, clamped bool, err error) {
	return parseClamped(strings.TrimSuffix(strings.TrimSpace(tok), "%"), "size", MinSize, MaxSize)
}

// ParseRangeBonus reads a signed integer bonus and clamps it to l.
func ParseRangeBonus(tok string, l Limits) (v int, clamped bool, err error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(tok), "+"))
	if err != nil {
		return 0, false, fmt.Errorf("range %q: %w", tok, ErrInvalidToken)
	}
	v = ClampBonus(n, l)
	return v, v != n, nil
}

// ParseColor accepts #rgb, #rrggbb (the '#' is optional) or a colour name.
func ParseColor(tok string) (colorful.Color, error) {
	s := strings.ToLower(strings.TrimSpace(tok))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return colorful.Color{}, fmt.Errorf("color %q: %w", tok, ErrInvalidToken)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("color %q: %w", tok, ErrInvalidToken)
	}
	return c, nil
}

// ParseMode reads "icon" or "box". "billboard" is accepted for icon.
func ParseMode(tok string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "icon", "billboard":
		return ModeIcon, nil
	case "box":
		return ModeBox, nil
	}
	return "", fmt.Errorf("mode %q: %w", tok, ErrInvalidToken)
}

// ParseToggle reads on/off style switches.
func ParseToggle(tok string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "on", "true", "1", "enable", "enabled":
		return true, nil
	case "off", "false", "0", "disable", "disabled":
		return false, nil
	}
	return false, fmt.Errorf("toggle %q: %w", tok, ErrInvalidToken)
}

func parseClamped(tok, what string, lo, hi float64) (float64, bool, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, fmt.Errorf("%s %q: %w", what, tok, ErrInvalidToken)
	}
	v := min(max(n, lo), hi)
	return v, v != n, nil
}
