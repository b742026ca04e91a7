package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/lootsense/extension/internal/config"
)

func TestNew_DisabledIsInert(t *testing.T) {
	p, err := New(FromConfig(config.OTelConfig{Enabled: false, Endpoint: "collector:4318"}, &bytes.Buffer{}))
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutExporter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "lootsense"})
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestNew_FileExporterWritesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "lootsense",
		BatchTimeout: time.Second,
	}, &buf))
	require.NoError(t, err)
	require.True(t, p.Enabled())

	otelslog.NewLogger("test", otelslog.WithLoggerProvider(p.LoggerProvider())).Info("marker added")

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "marker added")
	assert.Contains(t, buf.String(), "lootsense")
}
