package cli

import (
	"context"
	"fmt"

	"resumerank/internal/ai"
	"resumerank/internal/config"
	"resumerank/internal/errors"
	"resumerank/internal/observability"
	"resumerank/internal/pipeline"
	"resumerank/internal/scoring"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// newModelClient is swapped out by tests
var newModelClient = ai.NewModelClient

var rootCmd = &cobra.Command{
	Use:   "resumerank",
	Short: "Score resumes against job criteria using AI",
	Long: `Resumerank extracts hiring criteria from job descriptions and scores
PDF or DOCX resumes against them, writing one CSV report per batch.
It runs as a command-line tool or as an HTTP service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return cfg.Validate()
	},
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return ExecuteArgs(ctx, cfg, logger, nil)
}

// ExecuteArgs runs the root command with explicit arguments; nil means os.Args
func ExecuteArgs(ctx context.Context, cfg *config.Config, logger *errors.Logger, args []string) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	if args != nil {
		rootCmd.SetArgs(args)
	}
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING", "config not found in context", nil)
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING", "logger not found in context", nil)
}

// workflow bundles what a command needs to run the pipeline
type workflow struct {
	pipeline *pipeline.Pipeline
	client   ai.ModelClient
	prompts  *config.PromptStore
}

// buildWorkflow loads prompts, creates the shared model client and wires the pipeline
func buildWorkflow(ctx context.Context, cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics, opts ...pipeline.Option) (*workflow, error) {
	prompts := config.NewPromptStore(scoring.DefaultPrompts())
	if cfg.AI.PromptsFile != "" {
		if err := prompts.LoadFile(cfg.AI.PromptsFile); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Failed to load prompts from %s", cfg.AI.PromptsFile), err)
		}
	}

	client, err := newModelClient(ctx, cfg, logger, ai.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	opts = append([]pipeline.Option{pipeline.WithMetrics(metrics)}, opts...)
	return &workflow{
		pipeline: pipeline.NewFromConfig(cfg, client, prompts, logger, opts...),
		client:   client,
		prompts:  prompts,
	}, nil
}

func init() {
	rootCmd.AddCommand(extractCriteriaCmd)
	rootCmd.AddCommand(scoreResumesCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
