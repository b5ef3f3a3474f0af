package types

import "encoding/json"

// Criterion keys produced by criteria extraction
const (
	CriterionRequiredSkills  = "required_skills"
	CriterionPreferredSkills = "preferred_skills"
	CriterionCertifications  = "certifications"
	CriterionExperience      = "experience"
	CriterionQualifications  = "qualifications"
	CriterionSoftSkills      = "soft_skills"
)

// CriteriaKeys lists the JobCriteria keys in their canonical order.
var CriteriaKeys = []string{
	CriterionRequiredSkills,
	CriterionPreferredSkills,
	CriterionCertifications,
	CriterionExperience,
	CriterionQualifications,
	CriterionSoftSkills,
}

// JobCriteria represents the ranking criteria extracted from a job description
type JobCriteria struct {
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	Certifications  []string `json:"certifications"`
	Experience      []string `json:"experience"`
	Qualifications  []string `json:"qualifications"`
	SoftSkills      []string `json:"soft_skills"`
}

// Lists returns the criteria keyed by their JSON names.
func (c JobCriteria) Lists() map[string][]string {
	return map[string][]string{
		CriterionRequiredSkills:  c.RequiredSkills,
		CriterionPreferredSkills: c.PreferredSkills,
		CriterionCertifications:  c.Certifications,
		CriterionExperience:      c.Experience,
		CriterionQualifications:  c.Qualifications,
		CriterionSoftSkills:      c.SoftSkills,
	}
}

// Rubric converts the criteria into the mapping accepted by resume ranking.
func (c JobCriteria) Rubric() Rubric {
	rubric := make(Rubric, len(CriteriaKeys))
	for key, values := range c.Lists() {
		if values == nil {
			values = []string{}
		}
		rubric[key] = values
	}
	return rubric
}

// Rubric maps criterion names to whatever the caller describes them with.
// Keys are opaque: they need not be the JobCriteria keys.
type Rubric map[string]any

// ParseRubric decodes a JSON object into a Rubric.
func ParseRubric(data []byte) (Rubric, error) {
	var rubric Rubric
	if err := json.Unmarshal(data, &rubric); err != nil {
		return nil, err
	}
	return rubric, nil
}

// CriterionScore is a single 0-5 score for one criterion
type CriterionScore struct {
	Criteria string `json:"criteria"`
	Score    int    `json:"score"`
}

// RankedCandidate is one resume's extracted name and its per-criterion scores
type RankedCandidate struct {
	CandidateName string           `json:"candidate_name"`
	Scores        []CriterionScore `json:"scores"`
}

// Document is an uploaded file with its declared media type
type Document struct {
	Name      string
	MediaType string
	Content   []byte
}

// Artifact references a report written to disk
type Artifact struct {
	Path    string   `json:"path"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// ScoreSummary describes a finished scoring batch for CLI output
type ScoreSummary struct {
	Report     *Artifact         `json:"report"`
	Candidates []RankedCandidate `json:"candidates"`
	Failures   []BatchFailure    `json:"failures,omitempty"`
}

// BatchFailure is one document dropped from a batch
type BatchFailure struct {
	File  string `json:"file"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}
