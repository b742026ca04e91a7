// Package scan walks the sphere around the player in bounded batches and
// turns confirmed unopened loot into markers.
package scan

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lootsense/extension/internal/classify"
	"github.com/lootsense/extension/internal/geometry"
	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/logging"
	"github.com/lootsense/extension/internal/marker"
)

// DefaultMaxOffsetsPerScan is used when Config.MaxOffsetsPerScan is not positive.
const DefaultMaxOffsetsPerScan = 4096

type Config struct {
	MaxOffsetsPerScan int
}

// Classifier is the part of classify.Classifier the scanner needs.
type Classifier interface {
	Classify(w host.World, p host.Pos) (classify.Result, error)
}

// GeometryResolver is the part of geometry.Resolver the scanner needs.
type GeometryResolver interface {
	Resolve(k geometry.Key) geometry.Handle
}

// Result is the outcome of one ScanAndMark call.
type Result struct {
	Markers []marker.Marker
	// Scanned is the number of positions classified.
	Scanned  int
	Opened   int
	Unloaded int
	// Errors counts positions whose classification failed or panicked.
	Errors int
	// PassComplete is set when the cursor wrapped back to the start of the ring.
	PassComplete bool
	// ClearNeeded asks the caller to drop every marker.
	ClearNeeded bool
}

// Scanner keeps a cursor into the offset ring between calls. It is owned by
// the tick goroutine and is not safe for concurrent use.
type Scanner struct {
	cfg        Config
	classifier Classifier
	resolver   GeometryResolver
	ring       *OffsetRing
	cursor     int
	logger     *slog.Logger
	dedupe     *logging.Deduper
}

// New creates a Scanner. A nil logger uses slog.Default().
func New(cfg Config, c Classifier, g GeometryResolver, logger *slog.Logger) *Scanner {
	if cfg.MaxOffsetsPerScan <= 0 {
		cfg.MaxOffsetsPerScan = DefaultMaxOffsetsPerScan
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		cfg:        cfg,
		classifier: c,
		resolver:   g,
		ring:       NewOffsetRing(0),
		logger:     logger,
		dedupe:     logging.NewDeduper(0),
	}
}

// Restart moves the cursor back to the nearest offset.
func (s *Scanner) Restart() {
	s.cursor = 0
}

// Cursor returns the next ring index and the ring size.
func (s *Scanner) Cursor() (next, size int) {
	return s.cursor, s.ring.Len()
}

// ScanAndMark classifies the next min(ring size, MaxOffsetsPerScan) positions
// around center and returns markers for every unopened container found. It
// never touches the repository.
func (s *Scanner) ScanAndMark(w host.World, center host.Pos, radius int, now float64) Result {
	if radius <= 0 || w == nil || !w.Valid() {
		return Result{ClearNeeded: true}
	}

	if radius != s.ring.Radius() {
		s.ring = NewOffsetRing(radius)
		s.cursor = 0
	}

	n := s.ring.Len()
	if n == 0 {
		return Result{}
	}
	batch := min(n, s.cfg.MaxOffsetsPerScan)

	var res Result
	for i := 0; i < batch; i++ {
		p := center.Add(s.ring.At(s.cursor))
		s.cursor++
		if s.cursor == n {
			s.cursor = 0
			res.PassComplete = true
		}
		res.Scanned++

		cr, err := s.classify(w, p)
		if err != nil {
			res.Errors++
			s.dedupe.Warn(s.logger, rootCause(err), "Classification failed, treating as not lootable",
				"pos", p.String(), "error", err)
			continue
		}

		switch cr.Kind {
		case classify.LootableUnopened:
			res.Markers = append(res.Markers, s.markerFor(p, cr.Meta, now))
		case classify.LootableOpened:
			res.Opened++
		default:
			if errors.Is(cr.Err(), classify.ErrRegionUnloaded) {
				res.Unloaded++
			}
		}
	}
	return res
}

func (s *Scanner) classify(w host.World, p host.Pos) (res classify.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("classify panicked: %v", rec)
		}
	}()
	return s.classifier.Classify(w, p)
}

func (s *Scanner) markerFor(p host.Pos, meta classify.Meta, now float64) marker.Marker {
	h := geometry.UnitCube()
	if s.resolver != nil {
		h = s.resolver.Resolve(geometry.Key{VoxelType: meta.TypeName, EntityType: meta.EntityType})
	}
	return marker.New(p, h, geometry.FacingRotation(meta.VoxelMeta), now)
}

// rootCause keys log dedupe on the innermost error, which carries no position.
func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
