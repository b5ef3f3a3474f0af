package ai

import (
	"context"

	"google.golang.org/genai"
)

// GenerateRequest is one structured-output model invocation
type GenerateRequest struct {
	// Operation labels the call in traces, logs and metrics
	Operation    string
	SystemPrompt string
	UserPrompt   string
	Model        string
	// Temperature is always sent, including 0
	Temperature float32
	// Schema constrains the JSON reply
	Schema *genai.Schema
}

// ModelClient sends prompts to a hosted model and returns its raw text reply.
// Implementations are safe for concurrent use.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ModelInfoProvider reports whether the configured model is reachable
type ModelInfoProvider interface {
	ModelInfo(ctx context.Context) *ModelInfo
}

// StatsProvider exposes circuit breaker statistics for the status endpoint
type StatsProvider interface {
	CircuitBreakerStats() map[string]any
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
