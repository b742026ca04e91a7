package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned by Dispatch for unregistered commands.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrClosed is returned for buffered commands after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event represents one console command line.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
	usage      string
}

// Usage attaches a one-line help text to the command.
func Usage(text string) Option {
	return func(c *config) {
		c.usage = text
	}
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type route struct {
	run   HandlerFunc
	usage string
}

// Dispatcher routes console events to registered handlers.
// Handlers are registered during setup, before the first Dispatch.
type Dispatcher struct {
	routes  map[string]route
	logger  Logger
	metrics *instruments

	mu      sync.RWMutex
	buffers map[string]chan Event
}

// New creates a Dispatcher logging through logger.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes:  make(map[string]route),
		buffers: make(map[string]chan Event),
		logger:  logger,
	}
	ins, err := newInstruments(d.queueLens)
	if err != nil {
		return nil, err
	}
	d.metrics = ins
	return d, nil
}

func (d *Dispatcher) queueLens() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lens := make(map[string]int, len(d.buffers))
	for cmd, buf := range d.buffers {
		lens[cmd] = len(buf)
	}
	return lens
}

// Register binds command to h. Logging wraps buffering, so a logged buffered
// command reports the enqueue rather than the run.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize > 0 {
		h = d.withBuffer(command, cfg.bufferSize, cfg.blocking, h)
	}
	if cfg.logged {
		h = d.withLogging(command, h)
	}
	d.routes[command] = route{run: h, usage: cfg.usage}
}

// Dispatch runs the handler for e.Command and records its duration and outcome.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	r, ok := d.routes[e.Command]
	if !ok {
		d.metrics.unknown.Add(context.Background(), 1)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	start := time.Now()
	res, err := r.run(e)
	d.metrics.observe(e.Command, time.Since(start), err)
	return res, err
}

// ParseLine splits a console line into an event. The command is lower-cased;
// arguments keep their case.
func ParseLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	return Event{
		Command:   strings.ToLower(fields[0]),
		Args:      fields[1:],
		Timestamp: time.Now(),
	}, true
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	return slices.Sorted(maps.Keys(d.routes))
}

// Help renders one line per command with its usage text.
func (d *Dispatcher) Help() string {
	lines := make([]string, 0, len(d.routes))
	for _, name := range d.Commands() {
		line := name
		if u := d.routes[name].usage; u != "" {
			line = fmt.Sprintf("%-10s %s", name, u)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Close stops the buffered handler goroutines. Buffered commands dispatched
// afterwards fail with ErrClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for cmd, buf := range d.buffers {
		close(buf)
		delete(d.buffers, cmd)
	}
}

func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.routes[command]
	return ok
}

// withBuffer runs h on its own goroutine fed by a queue of size events. The
// caller gets "queued" right away; failures are only logged.
func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	queue := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = queue
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))

	go func() {
		for e := range queue {
			if _, err := h(e); err != nil {
				d.metrics.failed.Add(context.Background(), 1, attrs)
				d.logger.Error("Buffered command failed", "command", command, "error", err)
			}
		}
	}()

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if _, open := d.buffers[command]; !open {
			return nil, fmt.Errorf("%s: %w", command, ErrClosed)
		}
		if blocking {
			queue <- e
			return "queued", nil
		}
		select {
		case queue <- e:
			return "queued", nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%s is busy, try again", command)
		}
	}
}

// withLogging records each call at debug level. A handler error is usually a
// rejected player token, so it is logged at info.
func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)
		if err != nil {
			d.logger.Info("Command rejected", "command", command, "args", strings.Join(e.Args, " "), "error", err)
			return result, err
		}
		d.logger.Debug("Command handled", "command", command, "args", strings.Join(e.Args, " "), "took", time.Since(start))
		return result, nil
	}
}
