package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return metrics, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecordBusinessMetric(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	metrics.RecordBusinessMetric(ctx, MetricDocumentExtracted, true)
	metrics.RecordBusinessMetric(ctx, MetricDocumentExtracted, false)
	metrics.RecordBusinessMetric(ctx, MetricResumeRanked, true)
	metrics.RecordBusinessMetric(ctx, "unknown_metric", true)

	assert.Equal(t, int64(2), counterTotal(t, reader, "resumerank_documents_extracted_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumerank_resumes_ranked_total"))
	assert.Equal(t, int64(0), counterTotal(t, reader, "resumerank_reports_written_total"))
}

func TestRecordAIRequestCountsErrors(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	metrics.RecordAIRequest(ctx, "extract_criteria", "gemini-2.0-flash", 120*time.Millisecond, nil)
	metrics.RecordAIRequest(ctx, "rank_resume", "gemini-2.0-flash", time.Second, errors.New("quota"))

	assert.Equal(t, int64(2), counterTotal(t, reader, "resumerank_ai_requests_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumerank_ai_errors_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordAIRequest(ctx, "op", "model", time.Second, nil)
		metrics.RecordTokenUsage(ctx, "op", "model", 1, 2, 3)
		metrics.RecordBusinessMetric(ctx, MetricReportWritten, true)
		metrics.RecordRateLimitHit(ctx)
	})

	assert.NotPanics(t, func() {
		(&Metrics{}).RecordBusinessMetric(ctx, MetricReportWritten, true)
	})
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false, ServiceName: "resumerank"}, nil)
	require.NoError(t, err)

	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.Tracer("test"))
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumerank",
		SampleRate:  1.0,
	}, nil)
	require.NoError(t, err)

	metrics := om.GetMetrics()
	require.NotNil(t, metrics.ResumesRanked)

	_, span := om.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, om.Shutdown(context.Background()))
	assert.NoError(t, om.Shutdown(context.Background()))
}
