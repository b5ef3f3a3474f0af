package cli

import (
	"context"
	"fmt"

	"resumerank/internal/common"
	"resumerank/internal/pipeline"
	"resumerank/internal/types"
	"resumerank/internal/utils"

	"github.com/spf13/cobra"
)

var scoreResumesCmd = &cobra.Command{
	Use:   "score-resumes --criteria <criteria.json> [resume-file...]",
	Short: "Score resumes against job criteria and write a CSV report",
	Long: `Score PDF or DOCX resumes against a criteria JSON object.

Every resume is extracted concurrently, then every resume is scored
concurrently. One CSV report is written to the output directory with a row
per resume in argument order, and its path is printed.

By default the whole batch fails on the first failed resume. With
--continue-on-error failed resumes are reported and left out of the CSV.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := common.ResolveOutputFormat(scoreConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		scoreConfig.OutputFormat = format
		if scoreOutputDir != "" {
			return utils.ValidateOutputDir(scoreOutputDir)
		}
		return nil
	},
	RunE: runScoreResumes,
}

var (
	scoreConfig     common.CommandConfig
	criteriaFile    string
	scoreOutputDir  string
	continueOnError bool
)

func init() {
	scoreResumesCmd.Flags().StringVar(&criteriaFile, "criteria", "", "Criteria JSON file, e.g. the output of extract-criteria (required)")
	scoreResumesCmd.Flags().StringVar(&scoreOutputDir, "output-dir", "", "Directory for the CSV report (default from config)")
	scoreResumesCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Leave failed resumes out of the report instead of failing the batch")
	scoreResumesCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Summary output file path (default: stdout)")
	scoreResumesCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Summary format: json, text, or markdown")
	_ = scoreResumesCmd.MarkFlagRequired("criteria")

	_ = scoreResumesCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runScoreResumes(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	rubric, err := common.NewFileProcessor(logger).ReadRubric(criteriaFile)
	if err != nil {
		return err
	}

	runCfg := *cfg
	if scoreOutputDir != "" {
		runCfg.App.OutputDir = scoreOutputDir
	}
	policy := pipeline.DefaultPolicy
	if continueOnError {
		policy.AbortOnFirstFailure = false
	}

	wf, err := buildWorkflow(cmd.Context(), &runCfg, logger, nil, pipeline.WithPolicy(policy))
	if err != nil {
		return fmt.Errorf("failed to create scoring pipeline: %w", err)
	}

	logDetails := func(docs []types.Document, cfg common.CommandConfig) {
		logger.Info("Starting resume scoring",
			"resumes", len(docs),
			"criteria", len(rubric),
			"output_dir", runCfg.App.OutputDir,
			"continue_on_error", continueOnError)
	}

	score := func(ctx context.Context, docs []types.Document) (types.ScoreSummary, error) {
		result, err := wf.pipeline.ScoreResumes(ctx, rubric, docs)
		if err != nil {
			return types.ScoreSummary{}, err
		}
		return summarize(result), nil
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, scoreConfig, args, score, logDetails); err != nil {
		return fmt.Errorf("failed to score resumes: %w", err)
	}
	logger.Info("Resume scoring completed successfully")
	return nil
}

// summarize converts a pipeline result into printable output
func summarize(result *pipeline.ScoreResult) types.ScoreSummary {
	summary := types.ScoreSummary{
		Report:     result.Artifact,
		Candidates: result.Candidates,
	}
	for _, failure := range result.Failures {
		summary.Failures = append(summary.Failures, types.BatchFailure{
			File:  failure.Name,
			Stage: failure.Stage,
			Error: failure.Err.Error(),
		})
	}
	return summary
}
