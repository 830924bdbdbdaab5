package observability

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, NewLogger(InfoLevel, io.Discard))
	require.NoError(t, err)
	assert.Nil(t, providers)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelConfig_Sampler(t *testing.T) {
	for _, ratio := range []float64{0, -1, 2} {
		desc := OTelConfig{SampleRatio: ratio}.sampler().Description()
		assert.Contains(t, desc, "root:AlwaysOnSampler", "ratio %v should fall back to sampling everything", ratio)
	}
	assert.Contains(t, OTelConfig{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
	assert.Nil(t, OTelConfig{}.dialOptions())
	assert.Len(t, OTelConfig{Insecure: true}.dialOptions(), 1)
}

func TestLogger_WithContextTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "login")
	defer span.End()

	logger.WithContext(ctx).Info("traced")
	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
	assert.Contains(t, buf.String(), span.SpanContext().SpanID().String())
}
