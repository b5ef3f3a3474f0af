package scoring

import (
	"context"
	"fmt"

	"resumerank/internal/ai"
	"resumerank/internal/config"
	"resumerank/internal/errors"
	"resumerank/internal/types"
)

const operationExtractCriteria = "extract_criteria"

// CriteriaExtractor asks the model for the ranking criteria of a job description
type CriteriaExtractor struct {
	client   ai.ModelClient
	prompts  PromptSource
	settings config.OperationSettings
	logger   *errors.Logger
}

// NewCriteriaExtractor creates an extractor; nil prompts fall back to DefaultPrompts
func NewCriteriaExtractor(client ai.ModelClient, prompts PromptSource, settings config.OperationSettings, logger *errors.Logger) *CriteriaExtractor {
	if prompts == nil {
		prompts = StaticPrompts(DefaultPrompts())
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &CriteriaExtractor{client: client, prompts: prompts, settings: settings, logger: logger}
}

// Extract returns the six criteria lists for jobText
func (e *CriteriaExtractor) Extract(ctx context.Context, jobText string) (types.JobCriteria, error) {
	p := e.prompts.Get()

	reply, err := e.client.Generate(ctx, ai.GenerateRequest{
		Operation:    operationExtractCriteria,
		SystemPrompt: p.CriteriaSystem,
		UserPrompt:   fmt.Sprintf(p.CriteriaUser, jobText),
		Model:        e.settings.Model,
		Temperature:  e.settings.Temperature,
		Schema:       criteriaSchema(),
	})
	if err != nil {
		return types.JobCriteria{}, err
	}

	obj, err := decodeObject(reply)
	if err != nil {
		return types.JobCriteria{}, e.shapeError(reply, err)
	}
	criteria, err := validateCriteria(obj)
	if err != nil {
		return types.JobCriteria{}, e.shapeError(reply, err)
	}

	e.logger.Debug("Extracted job criteria",
		"required_skills", len(criteria.RequiredSkills),
		"preferred_skills", len(criteria.PreferredSkills),
		"certifications", len(criteria.Certifications),
		"experience", len(criteria.Experience),
		"qualifications", len(criteria.Qualifications),
		"soft_skills", len(criteria.SoftSkills))

	return criteria, nil
}

func (e *CriteriaExtractor) shapeError(reply string, cause error) error {
	e.logger.Debug("Rejected criteria reply", "reply", reply, "error", cause.Error())
	return errors.NewResponseShapeError(errors.ErrCodeResponseShape,
		"Model reply does not match the criteria schema", cause).
		WithContext("operation", operationExtractCriteria)
}
