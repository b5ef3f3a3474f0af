package server

import (
	"context"
	"time"

	"resumerank/internal/ai"
	"resumerank/internal/config"
	"resumerank/internal/errors"
	"resumerank/internal/pipeline"
	"resumerank/internal/types"
)

// Envelope is the JSON body of every dashboard response.
// Error is null on success.
type Envelope struct {
	Data    any     `json:"data"`
	Message string  `json:"message"`
	Error   *string `json:"error"`
}

// Workflows is the orchestration the HTTP layer drives
type Workflows interface {
	ExtractCriteria(ctx context.Context, doc types.Document) (types.JobCriteria, error)
	ScoreResumes(ctx context.Context, rubric types.Rubric, docs []types.Document) (*pipeline.ScoreResult, error)
}

// Server holds configuration for the HTTP server
type Server struct {
	Host     string
	Port     string
	BasePath string
	Version  string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Upload limits
	MaxRequestSize int64
	MaxUploadFiles int

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter
	CORS        config.CORSConfig

	Workflows Workflows
	Model     ai.ModelClient

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	BasePath        string
	Version         string
	TLSConfig       config.TLSConfig
	APIKeys         []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	MaxUploadFiles  int
	RateLimit       *config.RateLimitConfig
	CORS            config.CORSConfig
}

// ServerConfigFromConfig maps application config onto ServerConfig
func ServerConfigFromConfig(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		BasePath:        cfg.Server.BasePath,
		Version:         version,
		TLSConfig:       cfg.Server.TLS,
		APIKeys:         cfg.Server.APIKeys,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestSize:  cfg.App.MaxFileSize * int64(max(cfg.App.MaxUploadFiles, 1)),
		MaxUploadFiles:  cfg.App.MaxUploadFiles,
		RateLimit:       &rateLimit,
		CORS:            cfg.Server.CORS,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, workflows Workflows, model ai.ModelClient, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		BasePath:        cfg.BasePath,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		APIKeys:         apiKeyMap,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		MaxUploadFiles:  cfg.MaxUploadFiles,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		CORS:            cfg.CORS,
		Workflows:       workflows,
		Model:           model,
		Logger:          logger,
	}
}
