package ai

import (
	"context"
	"fmt"
	"net/http"
)

// Provider defines the interface for answer generation backends
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest represents a request to generate an answer
type GenerateRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// GenerateResponse represents a provider's response
type GenerateResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage,omitempty"`
}

// ChatMessage represents a message in a conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorKind classifies provider failures
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimit   ErrorKind = "rate_limit"
	ErrKindNetwork     ErrorKind = "network"
	ErrKindBadResponse ErrorKind = "bad_response"
)

// ProviderError wraps a failure from a specific provider
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an error kind
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrKindAuth
	case code == http.StatusTooManyRequests:
		return ErrKindRateLimit
	case code >= 500:
		return ErrKindNetwork
	default:
		return ErrKindBadResponse
	}
}

// messageContent returns the content of the first message with the given role
func messageContent(messages []ChatMessage, role string) string {
	for _, m := range messages {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}

// flattenMessages joins all message contents into one prompt string for
// providers whose envelope takes a single text field.
func flattenMessages(messages []ChatMessage) string {
	var prompt string
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += m.Content
	}
	return prompt
}
