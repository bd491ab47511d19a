package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func testOTelConfig() *OTelConfig {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "none"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	cfg := testOTelConfig()
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.TracerProvider)
	assert.NoError(t, providers.Shutdown(context.Background()))

	cfg = testOTelConfig()
	cfg.TraceExporter = "jaeger"
	_, err = InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	RecordError(ctx, errors.New("boom"))
	assert.True(t, span.IsRecording())
}

func TestClassificationMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.ObserveClassification(ctx, "ModernCRM", "regex", "User Action", time.Millisecond, nil)
	metrics.ObserveClassification(ctx, "LegacyCRM", "llm", "Unclassified", time.Second, errors.New("timeout"))
	metrics.RunStarted(ctx)
	metrics.RunFinished(ctx, 12, nil)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logs_classified_total")
	assert.Contains(t, string(body), "log_classification_errors_total")
	assert.Contains(t, string(body), "runtime_goroutines")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *BusinessMetrics
	assert.NotPanics(t, func() {
		metrics.ObserveClassification(context.Background(), "s", "regex", "l", time.Second, nil)
		metrics.RunStarted(context.Background())
		metrics.RunFinished(context.Background(), 1, nil)
	})
}
