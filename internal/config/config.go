package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the wikifinder configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Wiki      WikiConfig      `json:"wiki" yaml:"wiki"`
	Snapshot  SnapshotConfig  `json:"snapshot" yaml:"snapshot"`
	Index     IndexConfig     `json:"index" yaml:"index"`
	Chunker   ChunkerConfig   `json:"chunker" yaml:"chunker"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Ingestion IngestionConfig `json:"ingestion" yaml:"ingestion"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int `json:"port" yaml:"port"`
}

// WikiConfig contains wiki REST API settings
type WikiConfig struct {
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Username string `json:"username" yaml:"username"`
	APIToken string `json:"api_token" yaml:"api_token"` // Supports ${ENV_VAR} expansion
}

// SnapshotConfig contains document snapshot settings
type SnapshotConfig struct {
	Path string `json:"path" yaml:"path"`
}

// IndexConfig contains vector index settings
type IndexConfig struct {
	DBPath      string `json:"db_path" yaml:"db_path"`
	TopK        int    `json:"top_k" yaml:"top_k"`
	ContextDocs int    `json:"context_docs" yaml:"context_docs"` // Matches passed to answer generation
}

// ChunkerConfig contains document chunking settings
type ChunkerConfig struct {
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// EmbeddingConfig contains embedding provider settings
type EmbeddingConfig struct {
	Provider string             `json:"provider" yaml:"provider"` // "tfidf" (default), "openai"
	OpenAI   *OpenAIEmbedConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
}

// OpenAIEmbedConfig holds configuration for the OpenAI embedding provider.
type OpenAIEmbedConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Supports ${ENV_VAR} expansion
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`     // Default: "text-embedding-3-small"
}

// AIConfig contains answer generation provider settings
type AIConfig struct {
	DefaultProvider  string           `json:"default_provider" yaml:"default_provider"`
	FallbackProvider string           `json:"fallback_provider,omitempty" yaml:"fallback_provider,omitempty"`
	Providers        []ProviderConfig `json:"providers" yaml:"providers"`
}

// ProviderConfig contains settings for a single AI provider
type ProviderConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Type        string  `json:"type" yaml:"type"` // "openai", "bedrock", "kimi", "mock"
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Supports ${ENV_VAR} expansion
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Region      string  `json:"region,omitempty" yaml:"region,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// IngestionConfig contains scheduled ingestion settings
type IngestionConfig struct {
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"` // Cron expression; empty disables scheduling
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 5000},
		Snapshot: SnapshotConfig{Path: "./data/snapshot.json"},
		Index: IndexConfig{
			DBPath:      "./data/index.db",
			TopK:        5,
			ContextDocs: 3,
		},
		Chunker:   ChunkerConfig{MaxTokens: 800},
		Embedding: EmbeddingConfig{Provider: "tfidf"},
		AI:        AIConfig{DefaultProvider: ""},
	}
}

// Load loads configuration from a JSON or YAML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.expandEnvVars()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars expands ${ENV_VAR} placeholders in credential fields
func (c *Config) expandEnvVars() {
	c.Wiki.APIToken = os.ExpandEnv(c.Wiki.APIToken)
	c.Wiki.Username = os.ExpandEnv(c.Wiki.Username)
	for i := range c.AI.Providers {
		c.AI.Providers[i].APIKey = os.ExpandEnv(c.AI.Providers[i].APIKey)
	}
	if c.Embedding.OpenAI != nil {
		c.Embedding.OpenAI.APIKey = os.ExpandEnv(c.Embedding.OpenAI.APIKey)
	}
}

// applyDefaults fills zero values left by a partial config file
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = "./data/snapshot.json"
	}
	if c.Index.DBPath == "" {
		c.Index.DBPath = "./data/index.db"
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 5
	}
	if c.Index.ContextDocs <= 0 {
		c.Index.ContextDocs = 3
	}
	if c.Chunker.MaxTokens <= 0 {
		c.Chunker.MaxTokens = 800
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "tfidf"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Embedding.Provider {
	case "tfidf":
	case "openai":
		if c.Embedding.OpenAI == nil || c.Embedding.OpenAI.APIKey == "" {
			return fmt.Errorf("openai embedding provider requires an api_key")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	names := make(map[string]bool)
	for _, p := range c.AI.Providers {
		if p.Name == "" {
			return fmt.Errorf("AI provider missing name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate AI provider name: %s", p.Name)
		}
		names[p.Name] = true

		switch p.Type {
		case "openai", "bedrock", "kimi", "mock":
		default:
			return fmt.Errorf("unsupported AI provider type: %s", p.Type)
		}
	}

	if c.AI.DefaultProvider != "" && !names[c.AI.DefaultProvider] {
		return fmt.Errorf("default provider not found: %s", c.AI.DefaultProvider)
	}
	if c.AI.FallbackProvider != "" && !names[c.AI.FallbackProvider] {
		return fmt.Errorf("fallback provider not found: %s", c.AI.FallbackProvider)
	}

	return nil
}

// Save writes the configuration to a file as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
