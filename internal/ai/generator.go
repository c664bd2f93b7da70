package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"wikifinder/internal/config"
)

const (
	// NoAnswerText is returned when retrieval produced nothing to ground an answer on.
	NoAnswerText = "I apologize, but I couldn't find any relevant information to answer your question. Please try rephrasing your query or using different keywords."

	maxSnippetChars = 500
	generatorSystem = `You are a helpful assistant that answers questions based on provided documentation.

When answering:
1. Use the provided documentation as your primary source of information
2. If the documentation doesn't contain the answer, clearly state that
3. Provide specific references to which documents support your answer
4. Be concise but comprehensive
5. If multiple documents provide relevant information, synthesize them

Always cite the document number(s) you're referencing in your answer.`
)

// ContextDoc is a retrieved document passed to answer generation
type ContextDoc struct {
	Title      string
	Content    string
	URL        string
	Similarity float64
}

// AnswerResult carries the generated answer and the provider that produced it
type AnswerResult struct {
	Answer   string
	Provider string
}

// GenerationError reports that every attempted provider failed
type GenerationError struct {
	Attempted []string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed (tried %s): %v", strings.Join(e.Attempted, ", "), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces grounded answers from retrieved documents, trying a
// primary provider and falling back to a secondary one on failure.
type Generator struct {
	primary  Provider
	fallback Provider
}

// NewGenerator creates a generator. Either provider may be nil; with both nil
// the generator runs in degraded mode and synthesizes answers locally.
func NewGenerator(primary, fallback Provider) *Generator {
	return &Generator{primary: primary, fallback: fallback}
}

// NewGeneratorFromConfig builds the configured providers and wires the
// default and fallback chain.
func NewGeneratorFromConfig(cfg config.AIConfig) (*Generator, error) {
	providers := make(map[string]Provider)
	for _, providerCfg := range cfg.Providers {
		provider, err := newProvider(providerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", providerCfg.Name, err)
		}
		providers[providerCfg.Name] = provider
	}

	var primary, fallback Provider
	if cfg.DefaultProvider != "" {
		primary = providers[cfg.DefaultProvider]
	}
	if cfg.FallbackProvider != "" {
		fallback = providers[cfg.FallbackProvider]
	}
	if primary == nil && len(providers) > 0 {
		return nil, fmt.Errorf("default provider not configured")
	}

	return NewGenerator(primary, fallback), nil
}

// newProvider constructs a provider from its config entry
func newProvider(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "bedrock":
		return NewBedrockProvider(cfg)
	case "kimi":
		return NewKimiProvider(cfg)
	case "mock":
		return NewMockProvider(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}

// Generate produces an answer to query grounded in docs.
//
// With no docs it returns a fixed no-information answer without calling any
// backend. With no providers configured it returns a locally synthesized
// summary. Otherwise it asks the primary provider and retries once against
// the fallback on any error.
func (g *Generator) Generate(ctx context.Context, query string, docs []ContextDoc) (*AnswerResult, error) {
	if len(docs) == 0 {
		return &AnswerResult{Answer: NoAnswerText, Provider: "none"}, nil
	}

	if g.primary == nil && g.fallback == nil {
		return &AnswerResult{Answer: synthesizeSummary(query, docs), Provider: "mock"}, nil
	}

	req := &GenerateRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: generatorSystem},
			{Role: "user", Content: buildPrompt(query, docs)},
		},
	}

	var attempted []string
	providers := []Provider{g.primary, g.fallback}

	var lastErr error
	for i, provider := range providers {
		if provider == nil {
			continue
		}
		attempted = append(attempted, provider.Name())

		resp, err := provider.Generate(ctx, req)
		if err == nil {
			return &AnswerResult{Answer: resp.Content, Provider: provider.Name()}, nil
		}
		lastErr = err

		if i == 0 && g.fallback != nil {
			log.Printf("[Generator] Provider %s failed, falling back to %s: %v", provider.Name(), g.fallback.Name(), err)
		} else {
			log.Printf("[Generator] Provider %s failed: %v", provider.Name(), err)
		}
	}

	return nil, &GenerationError{Attempted: attempted, Err: lastErr}
}

// buildPrompt renders the grounding prompt: question plus numbered snippets
func buildPrompt(query string, docs []ContextDoc) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following documentation, please answer this question: %s\n\n", query)
	sb.WriteString("Relevant Documentation:\n")

	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}
		fmt.Fprintf(&sb, "Document %d (Title: %s, Similarity: %.3f):\n%s\n\n",
			i+1, title, doc.Similarity, truncateRunes(doc.Content, maxSnippetChars))
	}

	sb.WriteString("Please provide a comprehensive answer based on the documentation above.")
	return sb.String()
}

// synthesizeSummary produces a deterministic degraded-mode answer from the
// retrieved documents themselves. It is clearly labeled so callers can tell
// it apart from a model-generated answer.
func synthesizeSummary(query string, docs []ContextDoc) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "No AI provider is configured, so here is a summary of the most relevant documents for %q:\n\n", query)

	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}
		fmt.Fprintf(&sb, "%d. %s (similarity %.3f): %s\n",
			i+1, title, doc.Similarity, truncateRunes(doc.Content, 200))
	}

	sb.WriteString("\nConfigure an AI provider to get synthesized answers.")
	return sb.String()
}

// truncateRunes shortens s to at most n runes, appending an ellipsis
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
