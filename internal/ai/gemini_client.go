package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resumerank/internal/config"
	apperrors "resumerank/internal/errors"
	"resumerank/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiClient implements ModelClient for Google Gemini
type GeminiClient struct {
	client       *genai.Client
	model        string
	timeout      time.Duration
	retry        RetryPolicy
	breaker      *GenerationBreaker
	modelBreaker *ModelBreaker
	metrics      *observability.Metrics
	logger       *apperrors.Logger
}

var (
	_ ModelClient       = (*GeminiClient)(nil)
	_ ModelInfoProvider = (*GeminiClient)(nil)
	_ StatsProvider     = (*GeminiClient)(nil)
)

type geminiOptions struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// GeminiOption customises NewGeminiClient
type GeminiOption func(*geminiOptions)

// WithBaseURL points the client at a different API endpoint
func WithBaseURL(baseURL string) GeminiOption {
	return func(o *geminiOptions) { o.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(o *geminiOptions) { o.httpClient = client }
}

// WithMetrics records request and token metrics on m
func WithMetrics(m *observability.Metrics) GeminiOption {
	return func(o *geminiOptions) { o.metrics = m }
}

// NewGeminiClient creates a client shared by every operation
func NewGeminiClient(ctx context.Context, cfg config.AIConfig, logger *apperrors.Logger, opts ...GeminiOption) (*GeminiClient, error) {
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}

	var options geminiOptions
	for _, opt := range opts {
		opt(&options)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: options.httpClient,
	}
	if options.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: options.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiClient{
		client:       client,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		retry:        RetryPolicyFromConfig(cfg.Retry),
		breaker:      NewGenerationBreaker("generate", cfg.CircuitBreaker, logger),
		modelBreaker: NewModelBreaker("generate", cfg.CircuitBreaker, logger),
		metrics:      options.metrics,
		logger:       logger,
	}, nil
}

// Generate sends one structured-output request and returns the reply text
func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	operation := req.Operation
	if operation == "" {
		operation = "generate"
	}

	tracer := otel.Tracer("resumerank.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.Float64("ai.temperature", float64(req.Temperature)),
		attribute.Int("ai.prompt_length", len(req.UserPrompt)),
	)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temperature := req.Temperature
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
		Temperature:      &temperature,
	}
	if req.SystemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return executeWithRetry(ctx, g.retry, g.logger, operation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, model, genai.Text(req.UserPrompt), genaiConfig)
		})
	})
	g.metrics.RecordAIRequest(ctx, operation, model, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			fmt.Sprintf("Failed to generate content for %s", operation), err).
			WithContext("operation", operation).
			WithContext("model", model)
	}

	if usage := extractTokenUsage(result); usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		g.metrics.RecordTokenUsage(ctx, operation, model, usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", apperrors.NewAIError(apperrors.ErrCodeAIEmptyResponse,
			fmt.Sprintf("Model returned an empty response for %s", operation), nil).
			WithContext("operation", operation).
			WithContext("model", model)
	}

	span.SetAttributes(attribute.Int("ai.response_length", len(text)))
	return text, nil
}

// ModelInfo checks the readiness and availability of the configured model
func (g *GeminiClient) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.model,
		"display_name", info.DisplayName,
		"version", info.Version)

	return info
}

// CircuitBreakerStats returns statistics for both breakers
func (g *GeminiClient) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"generation":      g.breaker.Stats(),
		"model_info":      g.modelBreaker.Stats(),
		"overall_healthy": g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}
