package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "resumerank/internal/errors"
	"resumerank/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestValidateAndReadDocuments(t *testing.T) {
	dir := t.TempDir()
	first := writeTemp(t, dir, "b.pdf", "pdf bytes")
	second := writeTemp(t, dir, "a.DOCX", "docx bytes")

	docs, err := NewFileProcessor(nil).ValidateAndReadDocuments(first, second)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[0].Name)
	assert.Equal(t, "application/pdf", docs[0].MediaType)
	assert.Equal(t, []byte("pdf bytes"), docs[0].Content)
	assert.Equal(t, "a.DOCX", docs[1].Name)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docs[1].MediaType)
}

func TestValidateAndReadDocumentsErrors(t *testing.T) {
	dir := t.TempDir()
	notes := writeTemp(t, dir, "notes.txt", "plain")

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pdf"), wantType: apperrors.ErrorTypeValidation},
		{name: "unsupported extension", path: notes, wantType: apperrors.ErrorTypeFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileProcessor(nil).ValidateAndReadDocuments(tt.path)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestReadRubric(t *testing.T) {
	dir := t.TempDir()
	valid := writeTemp(t, dir, "criteria.json", `{"required_skills":["Go"],"culture":"remote first"}`)
	list := writeTemp(t, dir, "list.json", `["Go"]`)
	null := writeTemp(t, dir, "null.json", `null`)

	rubric, err := NewFileProcessor(nil).ReadRubric(valid)
	require.NoError(t, err)
	assert.Equal(t, "remote first", rubric["culture"])

	for _, path := range []string{list, null} {
		_, err := NewFileProcessor(nil).ReadRubric(path)
		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInvalidCriteria, appErr.Code)
	}

	_, err = NewFileProcessor(nil).ReadRubric(filepath.Join(dir, "missing.json"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIO))
}

func TestHandleOutput(t *testing.T) {
	criteria := types.JobCriteria{RequiredSkills: []string{"Go"}}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewOutputHandlerWithWriter(&buf, nil).HandleOutput(criteria, CommandConfig{OutputFormat: "text"})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "  - Go\n")
	})

	t.Run("file", func(t *testing.T) {
		var buf bytes.Buffer
		out := filepath.Join(t.TempDir(), "nested", "criteria.json")
		err := NewOutputHandlerWithWriter(&buf, nil).HandleOutput(criteria, CommandConfig{OutputFile: out, OutputFormat: "json"})
		require.NoError(t, err)
		assert.Zero(t, buf.Len())

		written, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(written), `"required_skills": [`)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := NewOutputHandlerWithWriter(&bytes.Buffer{}, nil).HandleOutput(criteria, CommandConfig{OutputFormat: "xml"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestRunDocumentCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "job.pdf", "job text")
	out := filepath.Join(dir, "out.json")

	var seen []types.Document
	err := RunDocumentCommand(context.Background(), nil, CommandConfig{OutputFile: out, OutputFormat: "json"},
		[]string{path},
		func(ctx context.Context, docs []types.Document) (types.JobCriteria, error) {
			seen = docs
			return types.JobCriteria{SoftSkills: []string{"Patience"}}, nil
		},
		nil)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "job.pdf", seen[0].Name)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Patience")
}
