package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("zip: not a valid zip file")
	err := NewIOError(ErrCodeExtractionFailed, "Failed to read DOCX container", cause)

	assert.Equal(t, "EXTRACTION_FAILED: Failed to read DOCX container (caused by: zip: not a valid zip file)", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewFormatError(ErrCodeUnsupportedFormat, "Unsupported file type: text/plain", nil)
	assert.Equal(t, "UNSUPPORTED_FORMAT: Unsupported file type: text/plain", plain.Error())
}

func TestIsTypeFollowsWrappedChain(t *testing.T) {
	formatErr := NewFormatError(ErrCodeUnsupportedFormat, "Unsupported file type", nil)
	wrapped := fmt.Errorf("document 2 (cv.txt): %w", formatErr)

	tests := []struct {
		name     string
		err      error
		typ      ErrorType
		expected bool
	}{
		{"direct match", formatErr, ErrorTypeFormat, true},
		{"wrapped by fmt", wrapped, ErrorTypeFormat, true},
		{"nested app error", NewInternalError("BATCH_FAILED", "batch failed", formatErr), ErrorTypeFormat, true},
		{"different type", formatErr, ErrorTypeAI, false},
		{"plain error", fmt.Errorf("boom"), ErrorTypeFormat, false},
		{"nil", nil, ErrorTypeFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsType(tt.err, tt.typ))
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(NewFormatError(ErrCodeUnsupportedFormat, "bad type", nil)))
	assert.True(t, IsClientError(NewValidationError(ErrCodeInvalidCriteria, "bad criteria", nil)))
	assert.False(t, IsClientError(NewResponseShapeError(ErrCodeResponseShape, "bad reply", nil)))
	assert.False(t, IsClientError(NewAIError(ErrCodeAIServiceFailed, "quota", nil)))
}

func TestLogErrorExpandsAppError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewResponseShapeError(ErrCodeResponseShape, "missing key soft_skills", nil).
		WithContext("operation", "extract_criteria")
	logger.LogError(err, "Criteria extraction failed", "document", "jd.pdf")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "response_shape", record["error_type"])
	assert.Equal(t, ErrCodeResponseShape, record["error_code"])
	assert.Equal(t, "extract_criteria", record["operation"])
	assert.Equal(t, "jd.pdf", record["document"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose")
	require.Error(t, err)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}
