package ai

import (
	"context"
	"fmt"

	"resumerank/internal/config"
	"resumerank/internal/errors"
)

// NewModelClient creates the shared model client for the configured provider
func NewModelClient(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts ...GeminiOption) (ModelClient, error) {
	logger.Debug("Initializing model client",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"temperature", cfg.AI.Temperature,
		"timeout", cfg.AI.Timeout,
		"retry_enabled", cfg.AI.Retry.Enabled,
		"circuit_breaker_enabled", cfg.AI.CircuitBreaker.Enabled)

	switch cfg.AI.Provider {
	case "gemini", "":
		client, err := NewGeminiClient(ctx, cfg.AI, logger, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.AI.Provider), nil)
	}
}
