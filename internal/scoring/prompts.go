package scoring

import "resumerank/internal/config"

// PromptSource supplies the active prompt templates
type PromptSource interface {
	Get() config.Prompts
}

const criteriaSystemPrompt = `Role: Given a job description, extract and categorize the key ranking criteria used to evaluate candidates, such as required and preferred skills, certifications, years of experience and qualifications.

Task: Analyze the provided job description and identify:
- Required Skills: the must-have technical skills.
- Preferred Skills: nice-to-have skills that are beneficial but not mandatory.
- Certifications: required or preferred industry certifications.
- Experience: the years of experience required, along with the relevant domains.
- Qualifications: the minimum educational qualifications and any additional academic preferences.
- Soft Skills: the soft skills required.

Output Format:
Return a JSON object with the keys required_skills, preferred_skills, certifications, experience, qualifications and soft_skills. Each value is a list of strings; use an empty list when the job description says nothing about a category.`

const criteriaUserPrompt = "Job Description: %s"

const rankingSystemPrompt = `Role: You are a resume ranking expert. Given a resume and a set of criteria, identify the candidate's name and score the resume against the criteria.

Task: Analyze the provided resume, identify the candidate's name and score the resume for each key in the criteria.
On a scale of 0-5 (where 0 means not mentioned at all and 5 means exceeds expectations), rate how well the resume meets each criterion.

Output Format:
Return a JSON object with candidate_name (string) and scores, a list of objects each holding criteria (the criteria key, unchanged) and score (an integer from 0 to 5).`

const rankingUserPrompt = "Resume: %s \n Criteria: %s"

// DefaultPrompts returns the built-in templates
func DefaultPrompts() config.Prompts {
	return config.Prompts{
		CriteriaSystem: criteriaSystemPrompt,
		CriteriaUser:   criteriaUserPrompt,
		RankingSystem:  rankingSystemPrompt,
		RankingUser:    rankingUserPrompt,
	}
}

// staticPrompts serves a fixed set of templates
type staticPrompts config.Prompts

func (s staticPrompts) Get() config.Prompts { return config.Prompts(s) }

// StaticPrompts wraps fixed templates as a PromptSource
func StaticPrompts(p config.Prompts) PromptSource { return staticPrompts(p) }
