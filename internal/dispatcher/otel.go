package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/lootsense/extension/internal/dispatcher"

// instruments are created on the global meter, a no-op unless the host
// installed a meter provider.
type instruments struct {
	queued   metric.Int64ObservableGauge
	handled  metric.Int64Counter
	failed   metric.Int64Counter
	dropped  metric.Int64Counter
	unknown  metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(queueLens func() map[string]int) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	ins := &instruments{}
	var err error

	if ins.handled, err = m.Int64Counter("lootsense.commands.handled",
		metric.WithDescription("Commands dispatched to a handler; buffered ones count when queued")); err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	if ins.failed, err = m.Int64Counter("lootsense.commands.failed",
		metric.WithDescription("Commands whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if ins.dropped, err = m.Int64Counter("lootsense.commands.dropped",
		metric.WithDescription("Buffered commands dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if ins.unknown, err = m.Int64Counter("lootsense.commands.unknown",
		metric.WithDescription("Lines naming no registered command")); err != nil {
		return nil, fmt.Errorf("creating unknown counter: %w", err)
	}
	if ins.duration, err = m.Float64Histogram("lootsense.commands.duration",
		metric.WithDescription("Synchronous handler time"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if ins.queued, err = m.Int64ObservableGauge("lootsense.commands.queued",
		metric.WithDescription("Events waiting in a buffered command queue")); err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}

	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range queueLens() {
			o.ObserveInt64(ins.queued, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, ins.queued)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return ins, nil
}

func (ins *instruments) observe(command string, took time.Duration, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("command", command))
	ins.handled.Add(ctx, 1, attrs)
	ins.duration.Record(ctx, float64(took.Microseconds())/1000, attrs)
	if err != nil {
		ins.failed.Add(ctx, 1, attrs)
	}
}
