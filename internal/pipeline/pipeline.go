// Package pipeline sequences text extraction, model scoring and report
// writing for the criteria and resume-scoring workflows.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"resumerank/internal/ai"
	"resumerank/internal/config"
	"resumerank/internal/document"
	"resumerank/internal/errors"
	"resumerank/internal/observability"
	"resumerank/internal/report"
	"resumerank/internal/scoring"
	"resumerank/internal/types"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TextExtractor turns a document into plain text
type TextExtractor interface {
	CheckSupported(doc types.Document) error
	Extract(ctx context.Context, doc types.Document) (string, error)
}

// CriteriaExtractor derives ranking criteria from a job description
type CriteriaExtractor interface {
	Extract(ctx context.Context, jobText string) (types.JobCriteria, error)
}

// ResumeRanker scores one resume against a rubric
type ResumeRanker interface {
	Rank(ctx context.Context, resumeText string, rubric types.Rubric) (types.RankedCandidate, error)
}

// ReportWriter persists ranked candidates
type ReportWriter interface {
	Write(ctx context.Context, candidates []types.RankedCandidate) (*types.Artifact, error)
}

// Policy controls how a batch reacts to a failing document
type Policy struct {
	// AbortOnFirstFailure cancels the batch on the first failure and
	// returns that error with no report.
	AbortOnFirstFailure bool
}

// DefaultPolicy is all-or-nothing
var DefaultPolicy = Policy{AbortOnFirstFailure: true}

// Stage names reported in DocumentFailure
const (
	StageExtract = "extract"
	StageRank    = "rank"
)

// DocumentFailure records a document dropped from a batch
type DocumentFailure struct {
	Index int
	Name  string
	Stage string
	Err   error
}

func (f DocumentFailure) Error() string {
	return fmt.Sprintf("document %d (%s) failed to %s: %v", f.Index, f.Name, f.Stage, f.Err)
}

func (f DocumentFailure) Unwrap() error { return f.Err }

// ScoreResult is the outcome of ScoreResumes. Artifact is nil for an empty batch.
type ScoreResult struct {
	Artifact   *types.Artifact
	Candidates []types.RankedCandidate
	Failures   []DocumentFailure
}

// Pipeline holds shared, stateless components and may serve concurrent requests
type Pipeline struct {
	extractor      TextExtractor
	criteria       CriteriaExtractor
	ranker         ResumeRanker
	writer         ReportWriter
	policy         Policy
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *errors.Logger
	tracer         trace.Tracer
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithPolicy sets the batch failure policy
func WithPolicy(policy Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithMaxConcurrency bounds the documents processed at once; 0 means unbounded
func WithMaxConcurrency(n int) Option {
	return func(p *Pipeline) { p.maxConcurrency = n }
}

// WithMetrics records business metrics on m
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New assembles a pipeline from its components
func New(extractor TextExtractor, criteria CriteriaExtractor, ranker ResumeRanker, writer ReportWriter, logger *errors.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	p := &Pipeline{
		extractor: extractor,
		criteria:  criteria,
		ranker:    ranker,
		writer:    writer,
		policy:    DefaultPolicy,
		logger:    logger,
		tracer:    otel.Tracer("resumerank.pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig wires the standard components around a shared model client
func NewFromConfig(cfg *config.Config, client ai.ModelClient, prompts scoring.PromptSource, logger *errors.Logger, opts ...Option) *Pipeline {
	base := []Option{WithMaxConcurrency(cfg.App.MaxConcurrency)}
	return New(
		document.NewExtractor(logger),
		scoring.NewCriteriaExtractor(client, prompts, cfg.GetCriteriaConfig(), logger),
		scoring.NewRanker(client, prompts, cfg.GetRankingConfig(), logger),
		report.NewWriter(cfg.App.OutputDir, logger),
		logger,
		append(base, opts...)...,
	)
}

// Policy returns the active failure policy
func (p *Pipeline) Policy() Policy { return p.policy }

// ExtractCriteria extracts the text of a job description and asks the model for its criteria
func (p *Pipeline) ExtractCriteria(ctx context.Context, doc types.Document) (types.JobCriteria, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract_criteria",
		trace.WithAttributes(
			attribute.String("document.name", doc.Name),
			attribute.String("document.media_type", doc.MediaType),
		))
	defer span.End()

	if err := p.extractor.CheckSupported(doc); err != nil {
		return types.JobCriteria{}, failSpan(span, err)
	}

	text, err := p.extractText(ctx, doc)
	if err != nil {
		return types.JobCriteria{}, failSpan(span, err)
	}

	criteria, err := p.criteria.Extract(ctx, text)
	p.metrics.RecordBusinessMetric(ctx, observability.MetricCriteriaExtracted, err == nil)
	if err != nil {
		p.logger.LogError(err, "Criteria extraction failed", "file", doc.Name)
		return types.JobCriteria{}, failSpan(span, err)
	}

	p.logger.Info("Criteria extracted", "file", doc.Name)
	return criteria, nil
}

// ScoreResumes extracts every resume concurrently, then ranks every text
// concurrently, then writes one report whose rows follow the input order.
func (p *Pipeline) ScoreResumes(ctx context.Context, rubric types.Rubric, docs []types.Document) (*ScoreResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.score_resumes",
		trace.WithAttributes(
			attribute.Int("batch.size", len(docs)),
			attribute.Int("rubric.criteria", len(rubric)),
			attribute.Bool("policy.abort_on_first_failure", p.policy.AbortOnFirstFailure),
		))
	defer span.End()

	for _, doc := range docs {
		if err := p.extractor.CheckSupported(doc); err != nil {
			return nil, failSpan(span, err)
		}
	}
	if len(docs) == 0 {
		p.logger.Info("Empty resume batch, no report written")
		return &ScoreResult{}, nil
	}

	p.logger.Info("Scoring resume batch",
		"documents", len(docs),
		"criteria", len(rubric),
		"abort_on_first_failure", p.policy.AbortOnFirstFailure,
		"max_concurrency", p.maxConcurrency)

	texts := make([]string, len(docs))
	extractErrs, err := p.runStage(ctx, len(docs), func(ctx context.Context, i int) error {
		text, err := p.extractText(ctx, docs[i])
		texts[i] = text
		return err
	})
	if err != nil {
		return nil, failSpan(span, err)
	}

	var failures []DocumentFailure
	pending := make([]int, 0, len(docs))
	for i, err := range extractErrs {
		if err != nil {
			failures = append(failures, DocumentFailure{Index: i, Name: docs[i].Name, Stage: StageExtract, Err: err})
			continue
		}
		pending = append(pending, i)
	}

	ranked := make([]types.RankedCandidate, len(docs))
	rankErrs, err := p.runStage(ctx, len(pending), func(ctx context.Context, k int) error {
		i := pending[k]
		candidate, err := p.ranker.Rank(ctx, texts[i], rubric)
		p.metrics.RecordBusinessMetric(ctx, observability.MetricResumeRanked, err == nil)
		if err != nil {
			p.logger.LogError(err, "Resume ranking failed", "file", docs[i].Name, "index", i)
			return err
		}
		ranked[i] = candidate
		return nil
	})
	if err != nil {
		return nil, failSpan(span, err)
	}

	rankFailed := make(map[int]error)
	for k, err := range rankErrs {
		if err != nil {
			i := pending[k]
			rankFailed[i] = err
			failures = append(failures, DocumentFailure{Index: i, Name: docs[i].Name, Stage: StageRank, Err: err})
		}
	}
	sort.SliceStable(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })

	candidates := make([]types.RankedCandidate, 0, len(pending))
	for _, i := range pending {
		if _, failed := rankFailed[i]; !failed {
			candidates = append(candidates, ranked[i])
		}
	}

	result := &ScoreResult{Candidates: candidates, Failures: failures}
	if len(candidates) == 0 {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f
		}
		return result, failSpan(span, stderrors.Join(errs...))
	}

	artifact, err := p.writer.Write(ctx, candidates)
	p.metrics.RecordBusinessMetric(ctx, observability.MetricReportWritten, err == nil)
	if err != nil {
		return nil, failSpan(span, err)
	}
	result.Artifact = artifact

	span.SetAttributes(
		attribute.Int("batch.scored", len(candidates)),
		attribute.Int("batch.failed", len(failures)),
	)
	if len(failures) > 0 {
		p.logger.Warn("Resume batch completed with failures",
			"scored", len(candidates),
			"failed", len(failures))
	}
	return result, nil
}

func (p *Pipeline) extractText(ctx context.Context, doc types.Document) (string, error) {
	text, err := p.extractor.Extract(ctx, doc)
	p.metrics.RecordBusinessMetric(ctx, observability.MetricDocumentExtracted, err == nil,
		attribute.String("media_type", doc.MediaType))
	if err != nil {
		p.logger.LogError(err, "Text extraction failed", "file", doc.Name)
	}
	return text, err
}

// runStage runs task for indexes 0..n-1 on a conc pool. Per-index errors are
// always returned. Under AbortOnFirstFailure the first failure cancels the
// remaining tasks and is also returned as the stage error.
func (p *Pipeline) runStage(ctx context.Context, n int, task func(ctx context.Context, i int) error) ([]error, error) {
	errs := make([]error, n)
	if n == 0 {
		return errs, nil
	}

	base := pool.New()
	if p.maxConcurrency > 0 {
		base = base.WithMaxGoroutines(p.maxConcurrency)
	}
	workers := base.WithContext(ctx)
	if p.policy.AbortOnFirstFailure {
		workers = workers.WithCancelOnError().WithFirstError()
	}

	for i := 0; i < n; i++ {
		workers.Go(func(ctx context.Context) error {
			err := task(ctx, i)
			errs[i] = err
			if p.policy.AbortOnFirstFailure {
				return err
			}
			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		return errs, err
	}
	return errs, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
