package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/lootsense/extension/internal/storage"
)

// Store keys.
const (
	KeyMode       = "lootsense.mode"
	KeySize       = "lootsense.size"
	KeyOpacity    = "lootsense.opacity"
	KeyColor      = "lootsense.color"
	KeyRangeBonus = "lootsense.rangeBonus"
)

// Manager owns the current Preferences. Reads come from the render thread,
// writes from the command surface.
type Manager struct {
	mu     sync.RWMutex
	cur    Preferences
	limits Limits
	store  storage.Store
	logger *slog.Logger
}

// NewManager starts from Defaults. A nil store keeps preferences in memory only.
func NewManager(store storage.Store, limits Limits, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cur:    Defaults(),
		limits: limits,
		store:  store,
		logger: logger,
	}
}

// Current returns a copy of the active preferences.
func (m *Manager) Current() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Limits returns the range bonus bounds.
func (m *Manager) Limits() Limits {
	return m.limits
}

// Load reads every key from the store. Missing keys keep their default; bad
// values fall back to the default with a warning. Load never fails.
func (m *Manager) Load() Preferences {
	p := Defaults()
	if m.store == nil {
		return m.set(p)
	}

	if s, ok := m.loadString(KeyMode); ok {
		if mode, err := ParseMode(s); err == nil {
			p.Mode = mode
		} else {
			m.logger.Warn("Ignoring stored preference", "key", KeyMode, "error", err)
		}
	}
	if v, ok := m.loadFloat(KeySize); ok {
		p.Size = v
	}
	if v, ok := m.loadFloat(KeyOpacity); ok {
		p.Opacity = v
	}
	if s, ok := m.loadString(KeyColor); ok {
		if c, err := ParseColor(s); err == nil {
			p.Color = c
		} else {
			m.logger.Warn("Ignoring stored preference", "key", KeyColor, "error", err)
		}
	}
	if v, ok := m.loadFloat(KeyRangeBonus); ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m.logger.Warn("Ignoring stored preference", "key", KeyRangeBonus, "value", v)
		} else {
			// clamp before converting; out-of-range float to int is undefined
			p.RangeBonus = int(clampFloat(v, float64(m.limits.BonusMin), float64(m.limits.BonusMax), 0))
		}
	}

	p = p.Normalize(m.limits)
	m.logger.Debug("Loaded preferences", "prefs", p.String())
	return m.set(p)
}

// Update applies f to a copy of the current preferences, normalises the result,
// makes it current and persists it. A persistence failure is logged and
// returned, but the new value stays active.
func (m *Manager) Update(f func(*Preferences)) (Preferences, error) {
	m.mu.Lock()
	next := m.cur
	f(&next)
	next = next.Normalize(m.limits)
	m.cur = next
	m.mu.Unlock()

	if err := m.persist(next); err != nil {
		m.logger.Warn("Failed to persist preferences", "error", err)
		return next, err
	}
	return next, nil
}

func (m *Manager) set(p Preferences) Preferences {
	m.mu.Lock()
	m.cur = p
	m.mu.Unlock()
	return p
}

func (m *Manager) persist(p Preferences) error {
	if m.store == nil {
		return nil
	}
	err := errors.Join(
		m.store.SetString(KeyMode, string(p.Mode)),
		m.store.SetFloat(KeySize, p.Size),
		m.store.SetFloat(KeyOpacity, p.Opacity),
		m.store.SetString(KeyColor, p.ColorHex()),
		m.store.SetFloat(KeyRangeBonus, float64(p.RangeBonus)),
	)
	if err != nil {
		return err
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func (m *Manager) loadFloat(key string) (float64, bool) {
	v, err := m.store.GetFloat(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("Failed to read preference, using default", "key", key, "error", err)
		}
		return 0, false
	}
	return v, true
}

func (m *Manager) loadString(key string) (string, bool) {
	v, err := m.store.GetString(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("Failed to read preference, using default", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

