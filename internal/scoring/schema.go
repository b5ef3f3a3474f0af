package scoring

import (
	"resumerank/internal/types"

	"google.golang.org/genai"
)

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

// criteriaSchema requires all six criteria lists
func criteriaSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			types.CriterionRequiredSkills:  stringList("The must-have technical skills"),
			types.CriterionPreferredSkills: stringList("Nice-to-have skills that are beneficial but not mandatory"),
			types.CriterionCertifications:  stringList("Required or preferred industry certifications"),
			types.CriterionExperience:      stringList("Experience required along with relevant domains"),
			types.CriterionQualifications:  stringList("Minimum educational qualifications and academic preferences"),
			types.CriterionSoftSkills:      stringList("Soft skills required"),
		},
		Required:         types.CriteriaKeys,
		PropertyOrdering: types.CriteriaKeys,
	}
}

// rankingSchema requires a name and a list of criterion scores
func rankingSchema() *genai.Schema {
	minScore, maxScore := float64(MinScore), float64(MaxScore)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"candidate_name": {Type: genai.TypeString, Description: "The name of the candidate"},
			"scores": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"criteria": {Type: genai.TypeString, Description: "The criteria being rated"},
						"score": {
							Type:        genai.TypeInteger,
							Description: "Score of the given criteria",
							Minimum:     &minScore,
							Maximum:     &maxScore,
						},
					},
					Required: []string{"criteria", "score"},
				},
			},
		},
		Required:         []string{"candidate_name", "scores"},
		PropertyOrdering: []string{"candidate_name", "scores"},
	}
}
