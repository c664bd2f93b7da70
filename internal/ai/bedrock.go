package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wikifinder/internal/config"
)

const (
	defaultBedrockModel     = "anthropic.claude-3-sonnet-20240229-v1:0"
	defaultBedrockMaxTokens = 1000
	anthropicBedrockVersion = "bedrock-2023-05-31"
)

// BedrockProvider invokes models through a Bedrock-compatible HTTP gateway.
// The request envelope depends on the model family (claude, titan, llama),
// selected from the model id.
type BedrockProvider struct {
	name     string
	apiKey   string
	model    string
	endpoint string
	region   string
	client   *http.Client
}

// NewBedrockProvider creates a new Bedrock gateway provider
func NewBedrockProvider(cfg config.ProviderConfig) (*BedrockProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url (gateway endpoint) is required for Bedrock provider")
	}

	model := cfg.Model
	if model == "" {
		model = defaultBedrockModel
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	return &BedrockProvider{
		name:     cfg.Name,
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: strings.TrimRight(cfg.BaseURL, "/"),
		region:   region,
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (b *BedrockProvider) Name() string {
	return b.name
}

// modelFamily returns the envelope family for a Bedrock model id
func modelFamily(modelID string) string {
	switch {
	case strings.HasPrefix(modelID, "amazon.titan"):
		return "titan"
	case strings.HasPrefix(modelID, "meta.llama"):
		return "llama"
	default:
		return "claude"
	}
}

func (b *BedrockProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = b.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultBedrockMaxTokens
	}

	var body map[string]interface{}
	switch modelFamily(model) {
	case "titan":
		body = map[string]interface{}{
			"inputText": flattenMessages(req.Messages),
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   req.Temperature,
				"stopSequences": []string{},
			},
		}
	case "llama":
		body = map[string]interface{}{
			"prompt":      flattenMessages(req.Messages),
			"max_gen_len": maxTokens,
			"temperature": req.Temperature,
			"top_p":       0.9,
		}
	default:
		messages := make([]ChatMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			if m.Role != "system" {
				messages = append(messages, m)
			}
		}
		body = map[string]interface{}{
			"anthropic_version": anthropicBedrockVersion,
			"max_tokens":        maxTokens,
			"temperature":       req.Temperature,
			"messages":          messages,
		}
		if system := messageContent(req.Messages, "system"); system != "" {
			body["system"] = system
		}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: b.name, Kind: ErrKindBadResponse, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	invokeURL := fmt.Sprintf("%s/model/%s/invoke", b.endpoint, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, "POST", invokeURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &ProviderError{Provider: b.name, Kind: ErrKindBadResponse, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Region", b.region)
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: b.name, Kind: ErrKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: b.name, Kind: classifyStatus(resp.StatusCode), Err: fmt.Errorf("API error: %d", resp.StatusCode)}
	}

	content, err := parseBedrockResponse(modelFamily(model), resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: b.name, Kind: ErrKindBadResponse, Err: err}
	}

	return &GenerateResponse{Content: content}, nil
}

// parseBedrockResponse extracts generated text from a family-specific envelope
func parseBedrockResponse(family string, body io.Reader) (string, error) {
	dec := json.NewDecoder(body)

	switch family {
	case "titan":
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := dec.Decode(&titanResp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("response contained no results")
		}
		return titanResp.Results[0].OutputText, nil

	case "llama":
		var llamaResp struct {
			Generation string `json:"generation"`
		}
		if err := dec.Decode(&llamaResp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		return llamaResp.Generation, nil

	default:
		var claudeResp struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := dec.Decode(&claudeResp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(claudeResp.Content) == 0 {
			return "", fmt.Errorf("response contained no content blocks")
		}
		return claudeResp.Content[0].Text, nil
	}
}
