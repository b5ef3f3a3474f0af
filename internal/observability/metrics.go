package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricDocumentExtracted = "document_extracted"
	MetricCriteriaExtracted = "criteria_extracted"
	MetricResumeRanked      = "resume_ranked"
	MetricReportWritten     = "report_written"
)

// Metrics holds all custom metrics. A nil *Metrics or a zero value records nothing.
type Metrics struct {
	// Model invocation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Pipeline metrics
	DocumentsExtracted metric.Int64Counter
	CriteriaExtracted  metric.Int64Counter
	ResumesRanked      metric.Int64Counter
	ReportsWritten     metric.Int64Counter

	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every custom instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"resumerank_ai_processing_duration_seconds",
		metric.WithDescription("Time spent waiting on model invocations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"resumerank_ai_requests_total",
		metric.WithDescription("Total number of model invocations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"resumerank_ai_errors_total",
		metric.WithDescription("Total number of failed model invocations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"resumerank_ai_token_usage_total",
		metric.WithDescription("Token usage for model invocations (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.DocumentsExtracted, "resumerank_documents_extracted_total", "Total number of documents converted to text"},
		{&m.CriteriaExtracted, "resumerank_criteria_extracted_total", "Total number of job descriptions turned into criteria"},
		{&m.ResumesRanked, "resumerank_resumes_ranked_total", "Total number of resumes scored"},
		{&m.ReportsWritten, "resumerank_reports_written_total", "Total number of CSV reports written"},
		{&m.RateLimitHits, "resumerank_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
		*c.target = counter
	}

	return m, nil
}

// RecordAIRequest records duration, count and failures of one model invocation
func (m *Metrics) RecordAIRequest(ctx context.Context, operation, model string, duration time.Duration, err error) {
	if m == nil || m.AIRequestCount == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	)
	m.AIProcessingTime.Record(ctx, duration.Seconds(), attrs)
	m.AIRequestCount.Add(ctx, 1, attrs)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, attrs)
	}
}

// RecordTokenUsage records input, output and total token counts
func (m *Metrics) RecordTokenUsage(ctx context.Context, operation, model string, input, output, total int64) {
	if m == nil || m.AITokenUsage == nil {
		return
	}
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", input},
		{"output", output},
		{"total", total},
	}
	for _, tt := range tokenTypes {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("model", model),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordBusinessMetric records one pipeline event of metricType
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if m == nil {
		return
	}

	var counter metric.Int64Counter
	switch metricType {
	case MetricDocumentExtracted:
		counter = m.DocumentsExtracted
	case MetricCriteriaExtracted:
		counter = m.CriteriaExtracted
	case MetricResumeRanked:
		counter = m.ResumesRanked
	case MetricReportWritten:
		counter = m.ReportsWritten
	}
	if counter == nil {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitHit records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}
