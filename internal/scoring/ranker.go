package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"resumerank/internal/ai"
	"resumerank/internal/config"
	"resumerank/internal/errors"
	"resumerank/internal/types"
)

const operationRankResume = "rank_resume"

// Ranker scores a resume against a rubric
type Ranker struct {
	client   ai.ModelClient
	prompts  PromptSource
	settings config.OperationSettings
	logger   *errors.Logger
}

// NewRanker creates a ranker; nil prompts fall back to DefaultPrompts
func NewRanker(client ai.ModelClient, prompts PromptSource, settings config.OperationSettings, logger *errors.Logger) *Ranker {
	if prompts == nil {
		prompts = StaticPrompts(DefaultPrompts())
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Ranker{client: client, prompts: prompts, settings: settings, logger: logger}
}

// Rank returns the candidate name and a 0-5 score per criterion.
// The name comes from the model and is not checked against the resume.
func (r *Ranker) Rank(ctx context.Context, resumeText string, rubric types.Rubric) (types.RankedCandidate, error) {
	criteriaJSON, err := json.Marshal(rubric)
	if err != nil {
		return types.RankedCandidate{}, errors.NewValidationError(errors.ErrCodeInvalidCriteria,
			"Criteria cannot be encoded as JSON", err)
	}

	p := r.prompts.Get()
	reply, err := r.client.Generate(ctx, ai.GenerateRequest{
		Operation:    operationRankResume,
		SystemPrompt: p.RankingSystem,
		UserPrompt:   fmt.Sprintf(p.RankingUser, resumeText, string(criteriaJSON)),
		Model:        r.settings.Model,
		Temperature:  r.settings.Temperature,
		Schema:       rankingSchema(),
	})
	if err != nil {
		return types.RankedCandidate{}, err
	}

	obj, err := decodeObject(reply)
	if err != nil {
		return types.RankedCandidate{}, r.shapeError(reply, err)
	}
	candidate, err := validateRanking(obj)
	if err != nil {
		return types.RankedCandidate{}, r.shapeError(reply, err)
	}

	r.logger.Debug("Ranked resume",
		"candidate", candidate.CandidateName,
		"criteria", len(candidate.Scores))

	return candidate, nil
}

func (r *Ranker) shapeError(reply string, cause error) error {
	r.logger.Debug("Rejected ranking reply", "reply", reply, "error", cause.Error())
	return errors.NewResponseShapeError(errors.ErrCodeResponseShape,
		"Model reply does not match the ranking schema", cause).
		WithContext("operation", operationRankResume)
}
