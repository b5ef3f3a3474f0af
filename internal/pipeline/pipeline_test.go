package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumerank/internal/ai"
	"resumerank/internal/ai/aitest"
	"resumerank/internal/config"
	"resumerank/internal/document"
	apperrors "resumerank/internal/errors"
	"resumerank/internal/report"
	"resumerank/internal/scoring"
	"resumerank/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoParser returns the document bytes as its text, failing on "corrupt"
func echoParser(extracted *atomic.Int32) document.Parser {
	return document.ParserFunc(func(data []byte) (string, error) {
		if string(data) == "corrupt" {
			return "", errors.New("bad container")
		}
		if extracted != nil {
			extracted.Add(1)
		}
		return string(data), nil
	})
}

func testExtractor(extracted *atomic.Int32) *document.Extractor {
	return document.NewExtractor(nil).
		WithParser(document.MediaTypePDF, echoParser(extracted)).
		WithParser(document.MediaTypeDOCX, echoParser(extracted))
}

// resumeText pulls the resume out of a ranking prompt built from the default templates
func resumeText(req ai.GenerateRequest) string {
	text := strings.TrimPrefix(req.UserPrompt, "Resume: ")
	if i := strings.Index(text, " \n Criteria: "); i >= 0 {
		text = text[:i]
	}
	return text
}

func newTestPipeline(t *testing.T, client ai.ModelClient, extracted *atomic.Int32, opts ...Option) (*Pipeline, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "reports")
	settings := config.OperationSettings{Model: "test-model"}
	p := New(
		testExtractor(extracted),
		scoring.NewCriteriaExtractor(client, nil, settings, nil),
		scoring.NewRanker(client, nil, settings, nil),
		report.NewWriter(dir, nil),
		nil,
		opts...,
	)
	return p, dir
}

func pdf(name, content string) types.Document {
	return types.Document{Name: name, MediaType: document.MediaTypePDF, Content: []byte(content)}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func TestScoreResumesTwoCandidateReport(t *testing.T) {
	replies := map[string]string{
		"resume-a": `{"candidate_name": "A", "scores": [{"criteria": "required_skills", "score": 5}, {"criteria": "preferred_skills", "score": 3}]}`,
		"resume-b": `{"candidate_name": "B", "scores": [{"criteria": "required_skills", "score": 2}]}`,
	}
	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		return replies[resumeText(req)], nil
	})
	p, _ := newTestPipeline(t, client, nil)

	rubric := types.Rubric{"required_skills": []string{"Go"}, "preferred_skills": []string{"Rust"}}
	result, err := p.ScoreResumes(context.Background(), rubric, []types.Document{
		pdf("a.pdf", "resume-a"),
		{Name: "b.docx", MediaType: document.MediaTypeDOCX, Content: []byte("resume-b")},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Artifact)
	assert.Empty(t, result.Failures)

	assert.Equal(t, [][]string{
		{"Candidate Name", "Preferred Skills", "Required Skills", "Total Score"},
		{"A", "3", "5", "8/10"},
		{"B", "0", "2", "2/5"},
	}, readCSV(t, result.Artifact.Path))
	assert.Equal(t, 2, client.Calls())
}

func TestScoreResumesPreservesInputOrder(t *testing.T) {
	const n = 6
	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		var idx int
		_, err := fmt.Sscanf(resumeText(req), "resume-%d", &idx)
		if err != nil {
			return "", err
		}
		// earlier documents finish last
		time.Sleep(time.Duration(n-idx) * 15 * time.Millisecond)
		return fmt.Sprintf(`{"candidate_name": "Candidate %d", "scores": [{"criteria": "skills", "score": %d}]}`, idx, idx%6), nil
	})
	p, _ := newTestPipeline(t, client, nil)

	docs := make([]types.Document, n)
	for i := range docs {
		docs[i] = pdf(fmt.Sprintf("%d.pdf", i), fmt.Sprintf("resume-%d", i))
	}

	result, err := p.ScoreResumes(context.Background(), types.Rubric{"skills": "Go"}, docs)
	require.NoError(t, err)
	require.Len(t, result.Candidates, n)

	records := readCSV(t, result.Artifact.Path)
	require.Len(t, records, n+1)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("Candidate %d", i), result.Candidates[i].CandidateName)
		assert.Equal(t, fmt.Sprintf("Candidate %d", i), records[i+1][0])
	}
}

func TestScoreResumesExtractsAllBeforeRanking(t *testing.T) {
	var extracted atomic.Int32
	var rankedEarly atomic.Bool
	docs := []types.Document{pdf("1.pdf", "resume-1"), pdf("2.pdf", "resume-2"), pdf("3.pdf", "resume-3")}

	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		if extracted.Load() != int32(len(docs)) {
			rankedEarly.Store(true)
		}
		return `{"candidate_name": "X", "scores": []}`, nil
	})
	p, _ := newTestPipeline(t, client, &extracted)

	_, err := p.ScoreResumes(context.Background(), types.Rubric{}, docs)
	require.NoError(t, err)
	assert.False(t, rankedEarly.Load(), "ranking started before every document was extracted")
	assert.Equal(t, len(docs), client.Calls())
}

func TestScoreResumesRejectsUnsupportedTypesUpFront(t *testing.T) {
	client := aitest.StaticClient(`{"candidate_name": "X", "scores": []}`)
	p, dir := newTestPipeline(t, client, nil)

	_, err := p.ScoreResumes(context.Background(), types.Rubric{"skills": "Go"}, []types.Document{
		pdf("ok.pdf", "resume"),
		{Name: "notes.txt", MediaType: "text/plain", Content: []byte("plain")},
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnsupportedFormat, appErr.Code)
	assert.Equal(t, 0, client.Calls())
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestScoreResumesEmptyBatch(t *testing.T) {
	client := aitest.StaticClient("unused")
	p, dir := newTestPipeline(t, client, nil)

	result, err := p.ScoreResumes(context.Background(), types.Rubric{"skills": "Go"}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Artifact)
	assert.Equal(t, 0, client.Calls())
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestScoreResumesAbortsOnFirstFailure(t *testing.T) {
	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		if resumeText(req) == "resume-bad" {
			return "", apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "service unavailable", nil)
		}
		return `{"candidate_name": "Good", "scores": [{"criteria": "skills", "score": 3}]}`, nil
	})
	p, dir := newTestPipeline(t, client, nil)
	assert.True(t, p.Policy().AbortOnFirstFailure)

	result, err := p.ScoreResumes(context.Background(), types.Rubric{"skills": "Go"}, []types.Document{
		pdf("good.pdf", "resume-good"),
		pdf("bad.pdf", "resume-bad"),
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAI))
	assert.Equal(t, 0, countFiles(t, dir), "no partial report may be written")
}

func TestScoreResumesAbortsOnExtractionFailure(t *testing.T) {
	client := aitest.StaticClient(`{"candidate_name": "X", "scores": []}`)
	p, dir := newTestPipeline(t, client, nil)

	_, err := p.ScoreResumes(context.Background(), types.Rubric{}, []types.Document{
		pdf("good.pdf", "resume-good"),
		pdf("broken.pdf", "corrupt"),
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExtractionFailed, appErr.Code)
	assert.Equal(t, 0, client.Calls(), "ranking must not start after an extraction failure")
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestScoreResumesContinueOnError(t *testing.T) {
	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		switch text := resumeText(req); text {
		case "resume-shape":
			return `{"candidate_name": "Broken", "scores": "nope"}`, nil
		default:
			return fmt.Sprintf(`{"candidate_name": %q, "scores": [{"criteria": "skills", "score": 4}]}`, text), nil
		}
	})
	p, _ := newTestPipeline(t, client, nil, WithPolicy(Policy{AbortOnFirstFailure: false}))

	result, err := p.ScoreResumes(context.Background(), types.Rubric{"skills": "Go"}, []types.Document{
		pdf("0.pdf", "resume-0"),
		pdf("1.pdf", "corrupt"),
		pdf("2.pdf", "resume-shape"),
		pdf("3.pdf", "resume-3"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Artifact)

	require.Len(t, result.Failures, 2)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, StageExtract, result.Failures[0].Stage)
	assert.Equal(t, 2, result.Failures[1].Index)
	assert.Equal(t, StageRank, result.Failures[1].Stage)
	assert.True(t, apperrors.IsType(result.Failures[1], apperrors.ErrorTypeResponseShape))

	assert.Equal(t, [][]string{
		{"Candidate Name", "Skills", "Total Score"},
		{"resume-0", "4", "4/5"},
		{"resume-3", "4", "4/5"},
	}, readCSV(t, result.Artifact.Path))
}

func TestScoreResumesContinueOnErrorAllFail(t *testing.T) {
	client := aitest.StaticClient("not json at all")
	p, dir := newTestPipeline(t, client, nil, WithPolicy(Policy{AbortOnFirstFailure: false}))

	result, err := p.ScoreResumes(context.Background(), types.Rubric{}, []types.Document{
		pdf("0.pdf", "resume-0"),
		pdf("1.pdf", "resume-1"),
	})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Artifact)
	assert.Len(t, result.Failures, 2)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestScoreResumesBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := aitest.NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return `{"candidate_name": "X", "scores": []}`, nil
	})
	p, _ := newTestPipeline(t, client, nil, WithMaxConcurrency(2))

	docs := make([]types.Document, 6)
	for i := range docs {
		docs[i] = pdf(fmt.Sprintf("%d.pdf", i), fmt.Sprintf("resume-%d", i))
	}
	result, err := p.ScoreResumes(context.Background(), types.Rubric{}, docs)
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScoreResumesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, dir := newTestPipeline(t, aitest.StaticClient(`{"candidate_name": "X", "scores": []}`), nil)
	_, err := p.ScoreResumes(ctx, types.Rubric{}, []types.Document{pdf("0.pdf", "resume-0")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestExtractCriteria(t *testing.T) {
	client := aitest.StaticClient(`{"required_skills": ["Go"], "preferred_skills": [], "certifications": [], "experience": ["3 years"], "qualifications": [], "soft_skills": []}`)
	p, _ := newTestPipeline(t, client, nil)

	criteria, err := p.ExtractCriteria(context.Background(), pdf("jd.pdf", "Senior Go engineer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, criteria.RequiredSkills)
	assert.Equal(t, []string{"3 years"}, criteria.Experience)

	requests := client.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "Job Description: Senior Go engineer", requests[0].UserPrompt)
}

func TestExtractCriteriaUnsupportedType(t *testing.T) {
	client := aitest.StaticClient("unused")
	p, _ := newTestPipeline(t, client, nil)

	_, err := p.ExtractCriteria(context.Background(), types.Document{Name: "jd.rtf", MediaType: "application/rtf"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFormat))
	assert.Equal(t, 0, client.Calls())
}
