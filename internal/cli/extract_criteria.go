package cli

import (
	"context"
	"fmt"

	"resumerank/internal/common"
	"resumerank/internal/types"

	"github.com/spf13/cobra"
)

var extractCriteriaCmd = &cobra.Command{
	Use:   "extract-criteria [job-description-file]",
	Short: "Extract hiring criteria from a job description",
	Long: `Extract structured hiring criteria from a PDF or DOCX job description.

The criteria contain six lists: required skills, preferred skills,
certifications, experience, qualifications and soft skills. Save the JSON
output and pass it to score-resumes with --criteria.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := common.ResolveOutputFormat(extractConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		extractConfig.OutputFormat = format
		return nil
	},
	RunE: runExtractCriteria,
}

var extractConfig common.CommandConfig

func init() {
	extractCriteriaCmd.Flags().StringVarP(&extractConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	extractCriteriaCmd.Flags().StringVar(&extractConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = extractCriteriaCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

// completeFormats completes --format from the configured formats
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveError
	}
	return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
}

func runExtractCriteria(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	wf, err := buildWorkflow(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create scoring pipeline: %w", err)
	}

	logDetails := func(docs []types.Document, cfg common.CommandConfig) {
		logger.Info("Starting criteria extraction",
			"file", docs[0].Name,
			"media_type", docs[0].MediaType,
			"output_format", cfg.OutputFormat)
	}

	extract := func(ctx context.Context, docs []types.Document) (types.JobCriteria, error) {
		return wf.pipeline.ExtractCriteria(ctx, docs[0])
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, extractConfig, args, extract, logDetails); err != nil {
		return fmt.Errorf("failed to extract criteria: %w", err)
	}
	logger.Info("Criteria extraction completed successfully")
	return nil
}
