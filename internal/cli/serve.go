package cli

import (
	"context"
	"fmt"
	"time"

	"resumerank/internal/config"
	"resumerank/internal/observability"
	"resumerank/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for criteria extraction and resume scoring",
	Long: `Start an HTTP server that provides the dashboard endpoints.

Available endpoints:
- POST <basePath>/dashboard/extract-criteria: Extract criteria from a job description (field "file")
- POST <basePath>/dashboard/score-resumes: Score resumes against criteria (fields "criteria", "files")
- GET /health: Health check endpoint
- GET <basePath>/status: Model, circuit breaker and rate limiting status

TLS is enabled with server.tls.enabled, server.tls.certFile and server.tls.keyFile.
A prompts file set in ai.promptsFile is reloaded whenever it changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
}

// applyServeFlags overrides the config with any flags set on the command line
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg)

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	wf, err := buildWorkflow(cmd.Context(), cfg, logger, om.GetMetrics())
	if err != nil {
		return fmt.Errorf("failed to create scoring pipeline: %w", err)
	}

	if wf.prompts.Path() != "" {
		watcher, err := config.NewPromptWatcher(wf.prompts, 0, logger)
		if err != nil {
			return fmt.Errorf("failed to create prompt watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			logger.Warn("Prompt hot reload disabled", "file", wf.prompts.Path(), "error", err.Error())
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	srv := server.NewServer(cfg, server.ServerConfigFromConfig(cfg, Version), wf.pipeline, wf.client, logger)
	return srv.Start(cmd.Context(), om)
}
