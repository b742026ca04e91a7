// Command lootsense-sim drives a LootSense session against a synthetic world,
// with the tick and render loops on separate goroutines the way a game host
// calls them.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/sync/errgroup"

	"github.com/lootsense/extension/internal/classify"
	"github.com/lootsense/extension/internal/config"
	"github.com/lootsense/extension/internal/geometry"
	"github.com/lootsense/extension/internal/influx"
	"github.com/lootsense/extension/internal/logging"
	"github.com/lootsense/extension/internal/monitor"
	intOtel "github.com/lootsense/extension/internal/otel"
	"github.com/lootsense/extension/internal/session"
)

const ExtensionName = "lootsense"

// BuildVersion can be set at build time via ldflags.
var BuildVersion = "0.0.1"

type options struct {
	configDir string
	duration  time.Duration
	tick      time.Duration
	fps       int
	seed      uint64
	rank      int
	props     int
	walk      float64
	speed     float64
	lootEvery time.Duration
	commands  string
	stdin     bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configDir, "config", ".", "directory containing "+config.FileName)
	flag.DurationVar(&o.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flag.DurationVar(&o.tick, "tick", 50*time.Millisecond, "controller tick period")
	flag.IntVar(&o.fps, "fps", 60, "render passes per second")
	flag.Uint64Var(&o.seed, "seed", 1, "world generation seed")
	flag.IntVar(&o.rank, "rank", 3, "perk rank of the simulated player")
	flag.IntVar(&o.props, "props", 600, "number of props scattered in the world")
	flag.Float64Var(&o.walk, "walk", 24, "radius of the player's walking circle")
	flag.Float64Var(&o.speed, "speed", 1.5, "walking speed in blocks per second")
	flag.DurationVar(&o.lootEvery, "loot", 3*time.Second, "how often the player opens a nearby container (0 disables)")
	flag.StringVar(&o.commands, "cmd", "", "semicolon separated console commands to run at start")
	flag.BoolVar(&o.stdin, "stdin", false, "read console commands from stdin")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "lootsense-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	start := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(opts.configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	logFile, err := openLogFile(viper.GetString("logsDir"), start)
	if err != nil {
		logger.Error("Failed to open log file, logging to console", "error", err)
	} else {
		defer logFile.Close()
	}

	otelProvider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), writerOrNil(logFile)))
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("OTel shutdown failed", "error", err)
			}
		}()
	}

	outputs := logging.Outputs{File: writerOrNil(logFile), Provider: otelLogProvider}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		gelfWriter, err := logging.NewGelfWriter(gl.Address, ExtensionName)
		if err != nil {
			logger.Error("Failed to create Graylog writer", "error", err)
		} else {
			defer gelfWriter.Close()
			outputs.Gelf = gelfWriter
		}
	}
	slogManager.SetupOutputs(outputs, viper.GetString("logLevel"))
	logger = slogManager.Logger()
	logger.Info("LootSense simulator starting", "version", BuildVersion, "seed", opts.seed)

	var zout io.Writer = os.Stdout
	if logFile != nil {
		zout = logFile
	}
	zlog := zerolog.New(zout).With().Timestamp().Str("ext", ExtensionName).Logger()

	store, err := createStorageBackend(config.GetStorageConfig(), logger)
	if err != nil {
		return err
	}
	if err := store.Init(); err != nil {
		return fmt.Errorf("initializing preference store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close preference store", "error", err)
		}
	}()

	influxManager := influx.NewManager(config.GetInfluxConfig(), zlog)
	var points monitor.PointWriter
	if err := influxManager.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			logger.Warn("InfluxDB unavailable, profiler points dropped", "error", err)
		}
	} else {
		points = influxManager
		defer influxManager.Close()
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	player := newWalker(opts.walk, opts.speed)
	h := &simHost{
		world:  newSimWorld(rng, opts.props, int(opts.walk)+40, int(opts.walk)+32),
		player: player,
		rank:   fixedRank(opts.rank),
	}
	renderer := &countingRenderer{}

	sessionID := uuid.NewString()
	monCfg := config.GetMonitorConfig()
	profiler := monitor.NewService(monitor.Dependencies{
		Logger:     logger,
		SessionID:  sessionID,
		Interval:   monCfg.Interval,
		StatusFile: monCfg.StatusFile,
		Influx:     points,
		Snapshots:  store,
	})

	rules, err := loadRules(config.GetClassifyConfig().RulesPath)
	if err != nil {
		return err
	}
	if rules != nil {
		logger.Info("Loaded container rules", "path", config.GetClassifyConfig().RulesPath)
	}

	sess, err := session.New(session.ConfigFromViper(), session.Dependencies{
		Host:          h,
		Renderer:      renderer,
		Store:         store,
		Geometry:      []geometry.Strategy{geometry.ShapeStrategy{Source: shapes{}}},
		Rules:         rules,
		Logger:        logger,
		CommandLogger: logging.NewDispatcherLogger(zlog).WithSession(sessionID),
		Monitor:       profiler,
		ID:            sessionID,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	slogManager.Bind(logging.SessionInfo{
		ID:      sess.ID(),
		Radius:  sess.ActiveRadius,
		Markers: sess.MarkerCount,
	})

	for _, line := range strings.Split(opts.commands, ";") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Printf("> %s\n%s\n", line, sess.Command(line))
	}
	if opts.stdin {
		go readCommands(ctx, os.Stdin, sess)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tickLoop(gctx, sess, h, opts, start, logger)
	})
	g.Go(func() error {
		return renderLoop(gctx, sess, eyeCamera{player: player}, opts.fps)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	fmt.Println(sess.Command("status"))
	fmt.Printf("draw calls: billboards=%d boxes=%d\n", renderer.billboards.Load(), renderer.boxes.Load())
	if err := slogManager.Flush(context.Background()); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	return nil
}

func tickLoop(ctx context.Context, sess *session.LootSenseSession, h *simHost, opts options, start time.Time, logger *slog.Logger) error {
	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	last := start
	lastLoot := start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			h.player.advance(now.Sub(last).Seconds())
			last = now

			stats := sess.Tick(now.Sub(start).Seconds())
			if stats.Panic != "" {
				logger.Warn("Tick recovered from panic", "panic", stats.Panic)
			}

			if opts.lootEvery > 0 && now.Sub(lastLoot) >= opts.lootEvery {
				lastLoot = now
				if p, ok := h.world.lootNear(h.player.Position(), 6); ok {
					logger.Debug("Player opened a container", "pos", p.String())
				}
			}
		}
	}
}

func renderLoop(ctx context.Context, sess *session.LootSenseSession, cam eyeCamera, fps int) error {
	if fps <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sess.OnCameraRendered(cam)
		}
	}
}

func readCommands(ctx context.Context, r io.Reader, sess *session.LootSenseSession) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if out := sess.Command(scanner.Text()); out != "" {
			fmt.Println(out)
		}
	}
}

// loadRules reads the configured catalog. An empty path keeps the built-in one.
func loadRules(path string) (*classify.Rules, error) {
	if path == "" {
		return nil, nil
	}
	r, err := classify.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func openLogFile(logsDir string, start time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, ExtensionName, start)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	return os.OpenFile(filepath.Clean(path), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}

// writerOrNil avoids handing a typed nil *os.File to an io.Writer field.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
