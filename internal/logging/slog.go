package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// osStdout is swapped in tests.
var osStdout io.Writer = os.Stdout

// Outputs selects where records go.
type Outputs struct {
	// File receives text records. When nil, records go to stdout instead;
	// the host console is too noisy to get both.
	File io.Writer
	// Gelf receives JSON records for Graylog; nil disables it.
	Gelf io.Writer
	// Provider feeds the OTel bridge; nil disables it.
	Provider *sdklog.LoggerProvider
}

// SlogManager owns the process logger. Outputs can be rebuilt once config is
// known; the bound session survives a rebuild.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
	level    slog.LevelVar
	session  atomic.Pointer[SessionInfo]
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case ("warn", "INFO", "debug-4").
// Anything else is info.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Setup is SetupOutputs without Graylog.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.SetupOutputs(Outputs{File: file, Provider: provider}, level)
}

// SetupOutputs replaces the logger. Writers from a previous call stop
// receiving records.
func (m *SlogManager) SetupOutputs(out Outputs, level string) {
	m.level.Set(parseLevel(level))
	m.provider = out.Provider

	opts := &slog.HandlerOptions{Level: &m.level, ReplaceAttr: utcTime}

	console := out.File
	if console == nil {
		console = osStdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(console, opts)}
	if out.Gelf != nil {
		handlers = append(handlers, slog.NewJSONHandler(out.Gelf, opts))
	}
	if out.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("lootsense", otelslog.WithLoggerProvider(out.Provider)))
	}

	m.logger = slog.New(sessionHandler{inner: NewFanout(handlers...), info: &m.session})
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

// Bind stamps info on every later record.
func (m *SlogManager) Bind(info SessionInfo) {
	m.session.Store(&info)
}

// SetLevel changes the minimum level without rebuilding outputs.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// Logger returns the configured logger, or slog.Default before setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
