package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"server": {"port": 8080},
		"wiki": {"base_url": "https://wiki.example.com", "username": "svc", "api_token": "tok"},
		"ai": {
			"default_provider": "kimi",
			"fallback_provider": "oai",
			"providers": [
				{"name": "kimi", "type": "kimi", "api_key": "k"},
				{"name": "oai", "type": "openai", "api_key": "o"}
			]
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://wiki.example.com", cfg.Wiki.BaseURL)
	assert.Equal(t, "kimi", cfg.AI.DefaultProvider)
	assert.Equal(t, "oai", cfg.AI.FallbackProvider)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  port: 9090
chunker:
  max_tokens: 400
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 400, cfg.Chunker.MaxTokens)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, 3, cfg.Index.ContextDocs)
	assert.Equal(t, 800, cfg.Chunker.MaxTokens)
	assert.Equal(t, "tfidf", cfg.Embedding.Provider)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("WIKI_TOKEN_TEST", "secret-token")
	t.Setenv("AI_KEY_TEST", "secret-key")

	path := writeConfig(t, "config.json", `{
		"wiki": {"api_token": "${WIKI_TOKEN_TEST}"},
		"ai": {"providers": [{"name": "p", "type": "mock", "api_key": "${AI_KEY_TEST}"}]}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Wiki.APIToken)
	assert.Equal(t, "secret-key", cfg.AI.Providers[0].APIKey)
}

func TestValidateRejectsUnknownProviderType(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"ai": {"providers": [{"name": "p", "type": "llamafile"}]}
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsMissingDefaultProvider(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"ai": {"default_provider": "ghost", "providers": [{"name": "p", "type": "mock"}]}
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateProviderNames(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"ai": {"providers": [
			{"name": "p", "type": "mock"},
			{"name": "p", "type": "mock"}
		]}
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
