package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wikifinder/internal/config"
)

const (
	defaultKimiBaseURL     = "https://api.moonshot.cn/v1"
	defaultKimiModel       = "moonshot-v1-8k"
	defaultKimiTemperature = 0.1
	defaultKimiMaxTokens   = 2000
)

// KimiProvider implements the Moonshot (Kimi) chat completions API.
// The API is OpenAI-compatible; it differs only in endpoint and defaults,
// with a low temperature for more factual responses.
type KimiProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewKimiProvider creates a new Kimi provider
func NewKimiProvider(cfg config.ProviderConfig) (*KimiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Kimi provider")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultKimiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultKimiModel
	}

	return &KimiProvider{
		name:    cfg.Name,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (k *KimiProvider) Name() string {
	return k.name
}

func (k *KimiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = k.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultKimiMaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultKimiTemperature
	}

	kimiReq := map[string]interface{}{
		"model":       model,
		"messages":    req.Messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	reqBody, err := json.Marshal(kimiReq)
	if err != nil {
		return nil, &ProviderError{Provider: k.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", k.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &ProviderError{Provider: k.name, Kind: ErrKindBadResponse, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+k.apiKey)

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: k.name, Kind: ErrKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: k.name, Kind: classifyStatus(resp.StatusCode), Err: fmt.Errorf("API error: %d", resp.StatusCode)}
	}

	var kimiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&kimiResp); err != nil {
		return nil, &ProviderError{Provider: k.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(kimiResp.Choices) == 0 {
		return nil, &ProviderError{Provider: k.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("response contained no choices")}
	}

	return &GenerateResponse{
		Content: kimiResp.Choices[0].Message.Content,
		Usage:   kimiResp.Usage,
	}, nil
}
