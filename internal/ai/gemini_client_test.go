package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumerank/internal/config"
	apperrors "resumerank/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGemini struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value // map[string]any
	lastPath atomic.Value // string
}

// newFakeGemini serves generateContent replies produced by respond
func newFakeGemini(t *testing.T, respond func(call int, w http.ResponseWriter)) *fakeGemini {
	t.Helper()
	fake := &fakeGemini{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := int(fake.calls.Add(1))
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)
		fake.lastBody.Store(decoded)
		fake.lastPath.Store(r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		respond(call, w)
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func textReply(w http.ResponseWriter, text string) {
	reply := map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": text}},
			},
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":     12,
			"candidatesTokenCount": 8,
			"totalTokenCount":      20,
		},
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func errorReply(w http.ResponseWriter, code int, status string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": "upstream says no", "status": status},
	})
}

func newTestGeminiClient(t *testing.T, fake *fakeGemini, retry config.RetryConfig) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(context.Background(), config.AIConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
		Retry:   retry,
	}, apperrors.NewNopLogger(), WithBaseURL(fake.server.URL+"/"))
	require.NoError(t, err)
	return client
}

func testRequest() GenerateRequest {
	return GenerateRequest{
		Operation:    "extract_criteria",
		SystemPrompt: "You extract criteria.",
		UserPrompt:   "Job Description: Go developer",
		Temperature:  0,
		Schema: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{"required_skills": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}},
			Required:   []string{"required_skills"},
		},
	}
}

func TestGeminiClientGenerateSendsStructuredRequest(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		textReply(w, `{"required_skills":["Go"]}`)
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{})

	text, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"required_skills":["Go"]}`, text)

	assert.True(t, strings.HasSuffix(fake.lastPath.Load().(string), "models/test-model:generateContent"))

	body := fake.lastBody.Load().(map[string]any)
	genConfig, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request: %v", body)
	assert.Equal(t, "application/json", genConfig["responseMimeType"])
	assert.Contains(t, genConfig, "responseSchema")
	temperature, ok := genConfig["temperature"]
	require.True(t, ok, "temperature 0 must still be sent")
	assert.Equal(t, float64(0), temperature)

	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiClientRequestModelOverride(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		textReply(w, `{}`)
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{})

	req := testRequest()
	req.Model = "ranking-model"
	_, err := client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fake.lastPath.Load().(string), "models/ranking-model:generateContent"))
}

func TestGeminiClientNoRetryByDefault(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		errorReply(w, http.StatusServiceUnavailable, "UNAVAILABLE")
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeAI, appErr.Type)
	assert.Equal(t, apperrors.ErrCodeAIServiceFailed, appErr.Code)

	var apiErr genai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code)
}

func TestGeminiClientRetriesWhenEnabled(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		if call < 3 {
			errorReply(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED")
			return
		}
		textReply(w, `{"ok":true}`)
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{
		Enabled:        true,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})

	text, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestGeminiClientDoesNotRetryClientErrors(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		errorReply(w, http.StatusBadRequest, "INVALID_ARGUMENT")
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{
		Enabled:        true,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestGeminiClientEmptyReply(t *testing.T) {
	fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	client := newTestGeminiClient(t, fake, config.RetryConfig{})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAIEmptyResponse, appErr.Code)
}

func TestNewModelClientRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{Provider: "openai", APIKey: "k"}}

	client, err := NewModelClient(context.Background(), cfg, apperrors.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
}

func TestGeminiClientTimeout(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		expectError bool
	}{
		{name: "zero means no deadline", timeout: 0},
		{name: "deadline shorter than reply", timeout: 20 * time.Millisecond, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGemini(t, func(call int, w http.ResponseWriter) {
				time.Sleep(200 * time.Millisecond)
				textReply(w, `{}`)
			})
			client, err := NewGeminiClient(context.Background(), config.AIConfig{
				APIKey:  "test-key",
				Model:   "test-model",
				Timeout: tt.timeout,
			}, apperrors.NewNopLogger(), WithBaseURL(fake.server.URL+"/"))
			require.NoError(t, err)

			start := time.Now()
			_, err = client.Generate(context.Background(), testRequest())
			if tt.expectError {
				require.Error(t, err)
				assert.Less(t, time.Since(start), 200*time.Millisecond)
				return
			}
			require.NoError(t, err)
		})
	}
}
