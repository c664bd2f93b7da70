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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements the OpenAI chat completions API
type OpenAIProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI provider")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		name:    cfg.Name,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (o *OpenAIProvider) Name() string {
	return o.name
}

func (o *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	openaiReq := map[string]interface{}{
		"model":    model,
		"messages": req.Messages,
	}
	if req.MaxTokens > 0 {
		openaiReq["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		openaiReq["temperature"] = req.Temperature
	}

	reqBody, err := json.Marshal(openaiReq)
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Kind: ErrKindBadResponse, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Kind: ErrKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: o.name, Kind: classifyStatus(resp.StatusCode), Err: fmt.Errorf("API error: %d", resp.StatusCode)}
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return nil, &ProviderError{Provider: o.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(openaiResp.Choices) == 0 {
		return nil, &ProviderError{Provider: o.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("response contained no choices")}
	}

	return &GenerateResponse{
		Content: openaiResp.Choices[0].Message.Content,
		Usage:   openaiResp.Usage,
	}, nil
}
