package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"resumerank/internal/types"
)

// Score bounds accepted from the ranker
const (
	MinScore = 0
	MaxScore = 5
)

// UnknownCandidate replaces a blank candidate name
const UnknownCandidate = "Unknown"

func validateCriteria(obj map[string]any) (types.JobCriteria, error) {
	var problems []string
	lists := make(map[string][]string, len(types.CriteriaKeys))

	for _, key := range types.CriteriaKeys {
		value, ok := obj[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing key %q", key))
			continue
		}
		list, err := stringSlice(value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		lists[key] = list
	}
	if len(problems) > 0 {
		return types.JobCriteria{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return types.JobCriteria{
		RequiredSkills:  lists[types.CriterionRequiredSkills],
		PreferredSkills: lists[types.CriterionPreferredSkills],
		Certifications:  lists[types.CriterionCertifications],
		Experience:      lists[types.CriterionExperience],
		Qualifications:  lists[types.CriterionQualifications],
		SoftSkills:      lists[types.CriterionSoftSkills],
	}, nil
}

func stringSlice(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %s", describe(value))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: expected a string, got %s", i, describe(item))
		}
		out = append(out, s)
	}
	return out, nil
}

func validateRanking(obj map[string]any) (types.RankedCandidate, error) {
	rawName, ok := obj["candidate_name"]
	if !ok {
		return types.RankedCandidate{}, fmt.Errorf("missing key %q", "candidate_name")
	}
	name, ok := rawName.(string)
	if !ok {
		return types.RankedCandidate{}, fmt.Errorf("candidate_name: expected a string, got %s", describe(rawName))
	}
	if strings.TrimSpace(name) == "" {
		name = UnknownCandidate
	}

	rawScores, ok := obj["scores"]
	if !ok {
		return types.RankedCandidate{}, fmt.Errorf("missing key %q", "scores")
	}
	items, ok := rawScores.([]any)
	if !ok {
		return types.RankedCandidate{}, fmt.Errorf("scores: expected a list, got %s", describe(rawScores))
	}

	scores := make([]types.CriterionScore, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return types.RankedCandidate{}, fmt.Errorf("scores[%d]: expected an object, got %s", i, describe(item))
		}
		criteria, ok := entry["criteria"].(string)
		if !ok {
			return types.RankedCandidate{}, fmt.Errorf("scores[%d].criteria: expected a string, got %s", i, describe(entry["criteria"]))
		}
		score, err := integerScore(entry["score"])
		if err != nil {
			return types.RankedCandidate{}, fmt.Errorf("scores[%d].score: %w", i, err)
		}
		scores = append(scores, types.CriterionScore{Criteria: criteria, Score: score})
	}

	return types.RankedCandidate{CandidateName: name, Scores: scores}, nil
}

// integerScore accepts whole numbers in [MinScore, MaxScore], including 4.0
func integerScore(value any) (int, error) {
	number, ok := value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %s", describe(value))
	}

	var score int64
	if n, err := number.Int64(); err == nil {
		score = n
	} else {
		f, ferr := number.Float64()
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("expected an integer, got %s", number.String())
		}
		score = int64(f)
	}

	if score < MinScore || score > MaxScore {
		return 0, fmt.Errorf("%d is outside %d-%d", score, MinScore, MaxScore)
	}
	return int(score), nil
}

func describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
