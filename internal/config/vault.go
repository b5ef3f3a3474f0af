package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumerank/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool         `mapstructure:"enabled"`
	Address   string       `mapstructure:"address"`
	Token     string       `mapstructure:"token"`
	TokenFile string       `mapstructure:"tokenFile"`
	Namespace string       `mapstructure:"namespace"`
	Secrets   VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 read paths, e.g. "secret/data/resumerank/model".
// An empty path skips that secret.
type VaultSecrets struct {
	// APIKeys holds a comma-separated list under the "keys" field
	APIKeys string `mapstructure:"apiKeys"`
	// ModelKey holds the model provider credential under "api_key"
	ModelKey string `mapstructure:"modelKey"`
}

// VaultSecret is one version of a KVv2 secret
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// VaultClient reads secrets from a KVv2 mount
type VaultClient struct {
	api    *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health.
// It returns a nil client when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !cfg.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	apiConfig := api.DefaultConfig()
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", apiConfig.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", apiConfig.Address,
		"namespace", cfg.Namespace,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{api: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", cfg.TokenFile)
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("vault token is required when vault is enabled")
}

// GetSecretV2 reads the latest version of the secret at path
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	raw, err := vc.api.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, err := vc.extractSecretData(raw, path)
	if err != nil {
		return nil, err
	}

	metadata, _ := raw.Data["metadata"].(map[string]any)
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret at %s has no version metadata", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	vc.logger.Debug("Secret read from Vault", "path", path, "version", version)
	return &VaultSecret{Data: data, Version: version}, nil
}

func (vc *VaultClient) extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number, string:
		version, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// GetStringSecret returns a string field of the secret at path
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	vc.logger.Debug("String secret retrieved", "path", path, "key", key, "masked_value", maskSecret(str))
	return str, nil
}

// GetStringSliceSecret splits a comma-separated string field
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitAndTrim(value), nil
}

// vaultBinding maps one Vault field onto the config
type vaultBinding struct {
	name  string
	path  string
	key   string
	apply func(*VaultClient, *Config, string, string) (bool, error)
}

func vaultBindings(cfg *Config) []vaultBinding {
	return []vaultBinding{
		{
			name: "server API keys",
			path: cfg.Vault.Secrets.APIKeys,
			key:  "keys",
			apply: func(vc *VaultClient, c *Config, path, key string) (bool, error) {
				keys, err := vc.GetStringSliceSecret(path, key)
				if err != nil || len(keys) == 0 {
					return false, err
				}
				c.Server.APIKeys = keys
				return true, nil
			},
		},
		{
			name: "model API key",
			path: cfg.Vault.Secrets.ModelKey,
			key:  "api_key",
			apply: func(vc *VaultClient, c *Config, path, key string) (bool, error) {
				value, err := vc.GetStringSecret(path, key)
				if err != nil {
					return false, err
				}
				return applyModelKeyToConfig(c, value), nil
			},
		},
	}
}

// ApplyVaultSecrets overrides config values with the secrets configured under vault.secrets
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	for _, b := range vaultBindings(config) {
		if b.path == "" {
			continue
		}
		applied, err := b.apply(client, config, b.path, b.key)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", b.name, "path", b.path)
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if !applied {
			logger.Warn("Empty secret in Vault, keeping configured value", "secret", b.name, "path", b.path)
			continue
		}
		logger.Info("Secret loaded from Vault", "secret", b.name)
	}
	return nil
}

// applyModelKeyToConfig overrides the credential with a non-blank value
func applyModelKeyToConfig(config *Config, modelKey string) bool {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return false
	}
	config.AI.APIKey = modelKey
	return true
}
