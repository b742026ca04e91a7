// Package session wires the scanner, marker repository, overlay and
// preferences into one LootSenseSession driven by the host's tick and render
// callbacks.
package session

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lootsense/extension/internal/classify"
	"github.com/lootsense/extension/internal/config"
	"github.com/lootsense/extension/internal/dispatcher"
	"github.com/lootsense/extension/internal/geometry"
	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/logging"
	"github.com/lootsense/extension/internal/marker"
	"github.com/lootsense/extension/internal/monitor"
	"github.com/lootsense/extension/internal/overlay"
	"github.com/lootsense/extension/internal/prefs"
	"github.com/lootsense/extension/internal/scan"
	"github.com/lootsense/extension/internal/storage"
)

// Config is the tuning a session runs with.
type Config struct {
	Scan config.ScanConfig
	Rank config.RankConfig
}

// ConfigFromViper reads the scan and rank sections.
func ConfigFromViper() Config {
	return Config{
		Scan: config.GetScanConfig(),
		Rank: config.GetRankConfig(),
	}
}

// Dependencies holds everything a session needs from its embedder. Only Host
// is required.
type Dependencies struct {
	Host     host.Host
	Renderer host.Renderer
	Store    storage.Store
	// Geometry strategies are tried in order before the unit cube fallback.
	Geometry []geometry.Strategy
	// Rules overrides the embedded classifier catalog.
	Rules   *classify.Rules
	Monitor *monitor.Service
	Logger  *slog.Logger
	// CommandLogger receives dispatcher logs; defaults to Logger.
	CommandLogger dispatcher.Logger
	// ID identifies the session in logs and snapshots; a UUID when empty.
	ID string
}

// TickStats describes one Tick.
type TickStats struct {
	Ran        bool
	Radius     float64
	Scanned    bool
	Scan       scan.Result
	Revalidate marker.RevalidateStats
	Pruned     int
	Cleared    bool
	// Panic is set when the tick aborted on a recovered panic.
	Panic              string
	ScanDuration       time.Duration
	RevalidateDuration time.Duration
}

// LootSenseSession owns every component for one play session.
type LootSenseSession struct {
	id     string
	cfg    Config
	host   host.Host
	logger *slog.Logger
	dedupe *logging.Deduper

	classifier *classify.Classifier
	geometry   *geometry.Resolver
	scanner    *scan.Scanner
	repo       *marker.Repository
	overlay    *overlay.Overlay
	prefs      *prefs.Manager
	monitor    *monitor.Service
	commands   *dispatcher.Dispatcher

	systemOn   atomic.Bool
	scanOn     atomic.Bool
	renderOn   atomic.Bool
	profilerOn atomic.Bool

	gate *movementGate

	// applyMu orders a scan batch landing in the repository against SetSystem.
	applyMu sync.Mutex

	// tick-goroutine state
	lastScan float64
	hasScan  bool

	// scanner cursor as of the last scan, for status readers
	cursorNext atomic.Int64
	cursorSize atomic.Int64

	radiusBits atomic.Uint64
	rank       atomic.Int64
	ticks      atomic.Int64

	statsMu   sync.Mutex
	lastStats TickStats
}

// New builds a session with system, scanning and rendering on and the
// profiler off. Preferences are loaded from the store.
func New(cfg Config, deps Dependencies) (*LootSenseSession, error) {
	if deps.Host == nil {
		return nil, fmt.Errorf("session: host is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := deps.ID
	if id == "" {
		id = uuid.NewString()
	}
	if cfg.Rank.PerkID == "" {
		cfg.Rank.PerkID = DefaultPerkID
	}

	rules := classify.DefaultRules()
	if deps.Rules != nil {
		rules = *deps.Rules
	}

	s := &LootSenseSession{
		id:      id,
		cfg:     cfg,
		host:    deps.Host,
		logger:  logger,
		dedupe:  logging.NewDeduper(0),
		monitor: deps.Monitor,
		gate:    newMovementGate(cfg.Scan.MovementThreshold),
	}

	s.classifier = classify.New(rules, logger)
	s.geometry = geometry.NewResolver(logger, deps.Geometry...)
	s.scanner = scan.New(scan.Config{MaxOffsetsPerScan: cfg.Scan.MaxOffsetsPerScan}, s.classifier, s.geometry, logger)
	s.publishCursor()
	s.repo = marker.NewRepository(marker.Config{
		RechecksPerTick: cfg.Scan.RechecksPerTick,
		RangeGrace:      cfg.Scan.RangeGrace,
		Timeout:         cfg.Scan.MarkerTimeout.Seconds(),
	}, logger)
	s.prefs = prefs.NewManager(deps.Store, s.bonusLimits(), logger)
	s.prefs.Load()
	s.overlay = overlay.New(deps.Renderer, s.repo, s.prefs, logger)

	cmdLogger := deps.CommandLogger
	if cmdLogger == nil {
		cmdLogger = logger
	}
	d, err := dispatcher.New(cmdLogger)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.commands = d
	s.registerCommands()

	s.systemOn.Store(true)
	s.scanOn.Store(true)
	s.renderOn.Store(true)
	s.syncOverlay()

	logger.Info("LootSense session created", "session", id, "perk", cfg.Rank.PerkID)
	return s, nil
}

// DefaultPerkID is used when the rank config names none.
const DefaultPerkID = "lootSense"

func (s *LootSenseSession) ID() string { return s.id }

// Repository exposes the marker store, mainly for diagnostics.
func (s *LootSenseSession) Repository() *marker.Repository { return s.repo }

// Preferences exposes the preference manager.
func (s *LootSenseSession) Preferences() *prefs.Manager { return s.prefs }

// ActiveRadius is the radius used by the last tick, in world units.
func (s *LootSenseSession) ActiveRadius() float64 {
	return math.Float64frombits(s.radiusBits.Load())
}

// LastTick returns the stats of the most recent tick.
func (s *LootSenseSession) LastTick() TickStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.lastStats
}

func (s *LootSenseSession) bonusLimits() prefs.Limits {
	return prefs.Limits{
		BonusMin: int(math.Ceil(s.cfg.Rank.BonusMin)),
		BonusMax: int(math.Floor(s.cfg.Rank.BonusMax)),
	}
}

// RadiusForRank maps a perk rank and range bonus to a detection radius. The
// rank is clamped into the table, the bonus into its configured range, and the
// result floored at zero.
func (s *LootSenseSession) RadiusForRank(rank, bonus int) float64 {
	table := s.cfg.Rank.Radius
	if len(table) == 0 {
		return 0
	}
	rank = min(max(rank, 0), len(table)-1)
	b := prefs.ClampBonus(bonus, s.bonusLimits())
	return max(0, table[rank]+float64(b))
}

// Tick runs one controller step. now is monotonic seconds. Tick must only be
// called from one goroutine.
func (s *LootSenseSession) Tick(now float64) (stats TickStats) {
	if !s.systemOn.Load() {
		return stats
	}
	stats.Ran = true
	s.ticks.Add(1)

	defer func() {
		if rec := recover(); rec != nil {
			stats.Panic = fmt.Sprint(rec)
			s.dedupe.Warn(s.logger, "tick-panic", "Tick aborted, retrying next tick", "panic", rec)
		}
		s.finishTick(stats)
	}()

	w := s.host.World()
	player := s.host.Player()
	if player == nil || !player.Alive() || w == nil || !w.Valid() {
		s.clear()
		stats.Cleared = true
		s.setRadius(0)
		return stats
	}

	rank := 0
	if prog := s.host.Progression(); prog != nil {
		rank = prog.PerkRank(player, s.cfg.Rank.PerkID)
	}
	s.rank.Store(int64(rank))
	radius := s.RadiusForRank(rank, s.prefs.Current().RangeBonus)
	s.setRadius(radius)
	stats.Radius = radius
	if radius <= 0 {
		s.clear()
		stats.Cleared = true
		return stats
	}

	pos := player.Position()

	start := time.Now()
	stats.Revalidate = s.repo.Revalidate(w, pos, radius, now, s.classifier)
	stats.Pruned = s.repo.Prune(now)
	stats.RevalidateDuration = time.Since(start)

	if !s.scanOn.Load() || !s.scanDue(now) {
		return stats
	}
	allow, restart := s.gate.Allow(pos, radius)
	if !allow {
		return stats
	}
	if restart {
		s.scanner.Restart()
	}

	start = time.Now()
	res := s.scanner.ScanAndMark(w, host.PosFromVec(pos), int(math.Floor(radius)), now)
	s.lastScan, s.hasScan = now, true
	s.publishCursor()
	if !s.applyScan(res) {
		return stats
	}
	stats.ScanDuration = time.Since(start)
	stats.Scanned = true
	stats.Scan = res

	switch {
	case res.ClearNeeded:
		s.clear()
		stats.Cleared = true
	case res.PassComplete:
		s.gate.Complete()
	}
	return stats
}

// applyScan stores a batch unless the system was turned off while it was
// scanned, in which case the repository is cleared instead.
func (s *LootSenseSession) applyScan(res scan.Result) bool {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	if !s.systemOn.Load() {
		s.clear()
		return false
	}
	s.repo.ApplyUpdates(res.Markers)
	return true
}

func (s *LootSenseSession) publishCursor() {
	next, size := s.scanner.Cursor()
	s.cursorNext.Store(int64(next))
	s.cursorSize.Store(int64(size))
}

// Cursor returns the scanner position published by the last scan.
func (s *LootSenseSession) Cursor() (next, size int) {
	return int(s.cursorNext.Load()), int(s.cursorSize.Load())
}

func (s *LootSenseSession) scanDue(now float64) bool {
	return !s.hasScan || now-s.lastScan >= s.cfg.Scan.Interval.Seconds()
}

func (s *LootSenseSession) clear() {
	s.repo.Clear()
	s.gate.Reset()
}

func (s *LootSenseSession) setRadius(r float64) {
	s.radiusBits.Store(math.Float64bits(r))
}

func (s *LootSenseSession) finishTick(stats TickStats) {
	s.statsMu.Lock()
	s.lastStats = stats
	s.statsMu.Unlock()

	if s.monitor == nil || !s.profilerOn.Load() {
		return
	}
	s.monitor.Record(monitor.Sample{
		Time:       time.Now(),
		Scan:       stats.ScanDuration,
		Revalidate: stats.RevalidateDuration,
		Draw:       s.overlay.LastDrawDuration(),
		Scanned:    stats.Scan.Scanned,
		Errors:     stats.Scan.Errors,
		Markers:    s.repo.Len(),
		Pending:    s.repo.Pending(),
		Radius:     stats.Radius,
	})
}

// OnCameraRendered is the host's per-camera render hook.
func (s *LootSenseSession) OnCameraRendered(cam host.Camera) {
	s.overlay.OnCameraRendered(cam)
}

// SetSystem turns the whole feature on or off. Off clears every marker and
// releases render resources; no scans run until it is turned on again.
func (s *LootSenseSession) SetSystem(on bool) {
	s.applyMu.Lock()
	s.systemOn.Store(on)
	if !on {
		s.clear()
	}
	s.applyMu.Unlock()

	s.syncOverlay()
	if !on {
		s.overlay.Release()
		return
	}
	s.dedupe.Reset()
	s.gate.Reset()
}

// SetScanning turns scanning on or off; revalidation and pruning continue.
func (s *LootSenseSession) SetScanning(on bool) {
	s.scanOn.Store(on)
	if on {
		s.gate.Reset()
	}
}

// SetRendering turns drawing on or off. Off releases render resources.
func (s *LootSenseSession) SetRendering(on bool) {
	s.renderOn.Store(on)
	s.syncOverlay()
	if !on {
		s.overlay.Release()
	}
}

// SetProfiler starts or stops the profiler. It fails when no profiler is wired.
func (s *LootSenseSession) SetProfiler(on bool) error {
	if s.monitor == nil {
		return fmt.Errorf("profiler not available")
	}
	s.profilerOn.Store(on)
	if on {
		return s.monitor.Start()
	}
	s.monitor.Stop()
	return nil
}

func (s *LootSenseSession) syncOverlay() {
	s.overlay.SetEnabled(s.systemOn.Load() && s.renderOn.Load())
}

// Close stops background work and releases render resources.
func (s *LootSenseSession) Close() {
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.commands.Close()
	s.overlay.Release()
	s.repo.Clear()
	s.logger.Info("LootSense session closed", "session", s.id)
}

// MarkerCount is the number of tracked markers.
func (s *LootSenseSession) MarkerCount() int { return s.repo.Len() }
