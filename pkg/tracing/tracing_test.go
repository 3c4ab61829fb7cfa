package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_None(t *testing.T) {
	before := otel.GetTracerProvider()
	p, err := NewProvider(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)
	require.Same(t, before, otel.GetTracerProvider())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Exporter: ExporterStdout, ServiceName: "registration-test"})
	require.NoError(t, err)
	require.NotNil(t, p.provider)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter")
}
