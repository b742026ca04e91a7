package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lootsense/extension/internal/config"
	"github.com/lootsense/extension/internal/dispatcher"
	"github.com/lootsense/extension/internal/prefs"
)

// errUsage is returned for a missing or extra argument.
var errUsage = errors.New("usage")

func (s *LootSenseSession) registerCommands() {
	d := s.commands
	d.Register("status", s.cmdStatus, dispatcher.Usage("show scanner, marker and toggle state"))
	d.Register("config", s.cmdConfig, dispatcher.Usage("dump preferences and tuning as JSON"))
	d.Register("opacity", s.cmdOpacity, dispatcher.Usage("<0-100> highlight opacity"), dispatcher.Logged())
	d.Register("size", s.cmdSize, dispatcher.Usage("<pct> highlight size, 10-300"), dispatcher.Logged())
	d.Register("color", s.cmdColor, dispatcher.Usage("<#rrggbb|name> highlight colour"), dispatcher.Logged())
	d.Register("range", s.cmdRange, dispatcher.Usage("<bonus> detection range bonus"), dispatcher.Logged())
	d.Register("mode", s.cmdMode, dispatcher.Usage("<icon|box> draw style"), dispatcher.Logged())
	d.Register("system", s.toggle("System", func(on bool) error { s.SetSystem(on); return nil }),
		dispatcher.Usage("<on|off> whole feature"), dispatcher.Logged())
	d.Register("scan", s.toggle("Scanning", func(on bool) error { s.SetScanning(on); return nil }),
		dispatcher.Usage("<on|off> world scanning"), dispatcher.Logged())
	d.Register("render", s.toggle("Rendering", func(on bool) error { s.SetRendering(on); return nil }),
		dispatcher.Usage("<on|off> highlight drawing"), dispatcher.Logged())
	d.Register("profiler", s.toggle("Profiler", s.SetProfiler),
		dispatcher.Usage("<on|off> timing profiler"), dispatcher.Logged())
	d.Register("help", func(dispatcher.Event) (any, error) { return s.commands.Help(), nil },
		dispatcher.Usage("list commands"))
	if s.monitor != nil {
		d.Register("flush", s.cmdFlush, dispatcher.Usage("publish a profiler summary now"), dispatcher.Buffered(4))
	}
}

// Command runs one console line and returns the message to show the player.
// Errors are rendered as messages; they never change state.
func (s *LootSenseSession) Command(line string) string {
	e, ok := dispatcher.ParseLine(line)
	if !ok {
		return "Type 'help' for a list of commands"
	}
	res, err := s.commands.Dispatch(e)
	switch {
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		return fmt.Sprintf("Unknown command %q, type 'help' for a list of commands", e.Command)
	case err != nil:
		return err.Error()
	case res == nil:
		return ""
	}
	return fmt.Sprint(res)
}

func singleArg(e dispatcher.Event, usage string) (string, error) {
	if len(e.Args) != 1 {
		return "", fmt.Errorf("%w: %s %s", errUsage, e.Command, usage)
	}
	return e.Args[0], nil
}

func clampNote(clamped bool) string {
	if clamped {
		return " (clamped)"
	}
	return ""
}

func (s *LootSenseSession) update(f func(*prefs.Preferences)) (prefs.Preferences, string) {
	p, err := s.prefs.Update(f)
	if err != nil {
		return p, " (not saved)"
	}
	return p, ""
}

func (s *LootSenseSession) cmdOpacity(e dispatcher.Event) (any, error) {
	tok, err := singleArg(e, "<0-100>")
	if err != nil {
		return nil, err
	}
	v, clamped, err := prefs.ParseOpacity(tok)
	if err != nil {
		return nil, err
	}
	p, note := s.update(func(p *prefs.Preferences) { p.Opacity = v })
	return fmt.Sprintf("Opacity set to %g%s%s", p.Opacity, clampNote(clamped), note), nil
}

func (s *LootSenseSession) cmdSize(e dispatcher.Event) (any, error) {
	tok, err := singleArg(e, "<pct>")
	if err != nil {
		return nil, err
	}
	v, clamped, err := prefs.ParseSize(tok)
	if err != nil {
		return nil, err
	}
	p, note := s.update(func(p *prefs.Preferences) { p.Size = v })
	return fmt.Sprintf("Size set to %g%%%s%s", p.Size, clampNote(clamped), note), nil
}

func (s *LootSenseSession) cmdColor(e dispatcher.Event) (any, error) {
	tok, err := singleArg(e, "<#rrggbb|name>")
	if err != nil {
		return nil, err
	}
	c, err := prefs.ParseColor(tok)
	if err != nil {
		return nil, err
	}
	p, note := s.update(func(p *prefs.Preferences) { p.Color = c })
	return fmt.Sprintf("Color set to %s%s", p.ColorHex(), note), nil
}

func (s *LootSenseSession) cmdRange(e dispatcher.Event) (any, error) {
	tok, err := singleArg(e, "<bonus>")
	if err != nil {
		return nil, err
	}
	v, clamped, err := prefs.ParseRangeBonus(tok, s.prefs.Limits())
	if err != nil {
		return nil, err
	}
	p, note := s.update(func(p *prefs.Preferences) { p.RangeBonus = v })
	return fmt.Sprintf("Range bonus set to %+d%s%s", p.RangeBonus, clampNote(clamped), note), nil
}

func (s *LootSenseSession) cmdMode(e dispatcher.Event) (any, error) {
	tok, err := singleArg(e, "<icon|box>")
	if err != nil {
		return nil, err
	}
	m, err := prefs.ParseMode(tok)
	if err != nil {
		return nil, err
	}
	p, note := s.update(func(p *prefs.Preferences) { p.Mode = m })
	return fmt.Sprintf("Mode set to %s%s", p.Mode, note), nil
}

func (s *LootSenseSession) toggle(name string, set func(bool) error) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		tok, err := singleArg(e, "<on|off>")
		if err != nil {
			return nil, err
		}
		on, err := prefs.ParseToggle(tok)
		if err != nil {
			return nil, err
		}
		if err := set(on); err != nil {
			return nil, err
		}
		return fmt.Sprintf("%s %s", name, onOff(on)), nil
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (s *LootSenseSession) cmdStatus(dispatcher.Event) (any, error) {
	next, size := s.Cursor()
	last := s.LastTick()
	ov := s.overlay.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "LootSense session %s, %d ticks\n", s.id, s.ticks.Load())
	fmt.Fprintf(&sb, "system=%s scan=%s render=%s profiler=%s\n",
		onOff(s.systemOn.Load()), onOff(s.scanOn.Load()), onOff(s.renderOn.Load()), onOff(s.profilerOn.Load()))
	fmt.Fprintf(&sb, "rank=%d radius=%g scanner=%s cursor=%d/%d\n",
		s.rank.Load(), s.ActiveRadius(), s.gate.state(), next, size)
	fmt.Fprintf(&sb, "markers=%d pending=%d types=%d geometry=%d\n",
		s.repo.Len(), s.repo.Pending(), s.classifier.CachedTypes(), s.geometry.Cached())
	fmt.Fprintf(&sb, "last tick: scanned=%d opened=%d errors=%d removed=%d pruned=%d\n",
		last.Scan.Scanned, last.Scan.Opened, last.Scan.Errors, last.Revalidate.Removed(), last.Pruned)
	fmt.Fprintf(&sb, "overlay: drawn=%d skipped=%d errors=%d draw=%s\n",
		ov.Drawn, ov.Skipped, ov.DrawErrors, s.overlay.LastDrawDuration())
	fmt.Fprintf(&sb, "prefs: %s", s.prefs.Current())
	return sb.String(), nil
}

type configDump struct {
	Session  string            `json:"session"`
	Mode     prefs.Mode        `json:"mode"`
	Size     float64           `json:"size"`
	Opacity  float64           `json:"opacity"`
	Color    string            `json:"color"`
	Range    int               `json:"rangeBonus"`
	Scan     config.ScanConfig `json:"scan"`
	Rank     config.RankConfig `json:"rank"`
	System   bool              `json:"system"`
	Scanning bool              `json:"scanning"`
	Render   bool              `json:"render"`
	Profiler bool              `json:"profiler"`
}

func (s *LootSenseSession) cmdConfig(dispatcher.Event) (any, error) {
	p := s.prefs.Current()
	out, err := json.MarshalIndent(configDump{
		Session:  s.id,
		Mode:     p.Mode,
		Size:     p.Size,
		Opacity:  p.Opacity,
		Color:    p.ColorHex(),
		Range:    p.RangeBonus,
		Scan:     s.cfg.Scan,
		Rank:     s.cfg.Rank,
		System:   s.systemOn.Load(),
		Scanning: s.scanOn.Load(),
		Render:   s.renderOn.Load(),
		Profiler: s.profilerOn.Load(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

func (s *LootSenseSession) cmdFlush(dispatcher.Event) (any, error) {
	_, err := s.monitor.Flush(time.Now())
	return nil, err
}
