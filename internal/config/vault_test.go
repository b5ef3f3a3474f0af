package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"resumerank/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

// newFakeVault serves sys/health and a KVv2 read for each path in secrets.
func newFakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sys/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false,"version":"1.15.0","cluster_name":"test"}`))
	})
	for path, data := range secrets {
		body, err := json.Marshal(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
		require.NoError(t, err)
		mux.HandleFunc("/v1/"+path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "fractional json number", input: json.Number("4.5"), expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestApplyModelKeyToConfig(t *testing.T) {
	config := &Config{AI: AIConfig{APIKey: "from-env"}}

	assert.False(t, applyModelKeyToConfig(config, "   "))
	assert.Equal(t, "from-env", config.AI.APIKey, "blank vault value must not clear the key")

	assert.True(t, applyModelKeyToConfig(config, " from-vault \n"))
	assert.Equal(t, "from-vault", config.AI.APIKey)
}

func TestResolveVaultToken(t *testing.T) {
	logger := newTestLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{AI: AIConfig{APIKey: "unchanged"}}

	require.NoError(t, ApplyVaultSecrets(config, newTestLogger()))
	assert.Equal(t, "unchanged", config.AI.APIKey)
}

func TestApplyVaultSecretsLoadsKeys(t *testing.T) {
	server := newFakeVault(t, map[string]map[string]any{
		"secret/data/resumerank/model":  {"api_key": "vault-model-key"},
		"secret/data/resumerank/server": {"keys": "alpha, beta,,gamma"},
	})

	config := &Config{
		AI: AIConfig{APIKey: "env-key"},
		Vault: VaultConfig{
			Enabled: true,
			Address: server.URL,
			Token:   "root",
			Secrets: VaultSecrets{
				ModelKey: "secret/data/resumerank/model",
				APIKeys:  "secret/data/resumerank/server",
			},
		},
	}

	require.NoError(t, ApplyVaultSecrets(config, newTestLogger()))
	assert.Equal(t, "vault-model-key", config.AI.APIKey)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, config.Server.APIKeys)
}

func TestGetStringSecretErrors(t *testing.T) {
	server := newFakeVault(t, map[string]map[string]any{
		"secret/data/resumerank/model": {"api_key": 12345},
	})

	vc, err := NewVaultClient(VaultConfig{Enabled: true, Address: server.URL, Token: "root"}, newTestLogger())
	require.NoError(t, err)

	_, err = vc.GetStringSecret("secret/data/resumerank/model", "missing")
	assert.ErrorContains(t, err, "key 'missing' not found")

	_, err = vc.GetStringSecret("secret/data/resumerank/model", "api_key")
	assert.ErrorContains(t, err, "is not a string")

	_, err = vc.GetStringSecret("secret/data/absent", "api_key")
	assert.Error(t, err)
}

func TestVaultClientExtractSecretData(t *testing.T) {
	vc := &VaultClient{logger: newTestLogger()}

	tests := []struct {
		name        string
		secret      *api.Secret
		expectError bool
		expected    map[string]any
	}{
		{
			name: "valid KVv2 secret",
			secret: &api.Secret{Data: map[string]any{
				"data": map[string]any{"api_key": "value1"},
			}},
			expected: map[string]any{"api_key": "value1"},
		},
		{
			name:        "KVv1 layout",
			secret:      &api.Secret{Data: map[string]any{"api_key": "value1"}},
			expectError: true,
		},
		{
			name:        "data field wrong type",
			secret:      &api.Secret{Data: map[string]any{"data": "not-a-map"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := vc.extractSecretData(tt.secret, "secret/data/test")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****wxyz", maskSecret("AIzaSyD-abcdwxyz"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
