package rag

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"wikifinder/internal/ai"
	"wikifinder/internal/vectorindex"
)

// ErrEmptyQuery is returned for queries that are empty or whitespace-only.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrRetrieval is returned when retrieval fails; the underlying cause is
// logged but never surfaced to callers.
var ErrRetrieval = errors.New("search failed")

// Metadata keys written at ingestion time and read back at query time.
const (
	MetaTitle      = "title"
	MetaURL        = "url"
	MetaSpaceKey   = "space_key"
	MetaChunkIndex = "chunk_index"
	MetaDocumentID = "document_id"
)

// DefaultContextDocs bounds how many matches are passed to answer generation.
const DefaultContextDocs = 3

// Outcome classifies how a query terminated
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeNoData    Outcome = "no_data"
	OutcomeNoMatches Outcome = "no_matches"
)

// Result is one retrieved document in a query response
type Result struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score"`
	SpaceKey   string  `json:"space_key,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Answer     string  `json:"answer,omitempty"`
	Provider   string  `json:"answer_provider,omitempty"`
}

// Response is the assembled answer to a query
type Response struct {
	Query   string   `json:"query"`
	Outcome Outcome  `json:"outcome"`
	Message string   `json:"message,omitempty"`
	Results []Result `json:"results"`
}

// Searcher retrieves ranked matches for a query
type Searcher interface {
	Search(ctx context.Context, query string) ([]vectorindex.Match, error)
}

// AnswerGenerator produces a grounded answer from retrieved documents
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, docs []ai.ContextDoc) (*ai.AnswerResult, error)
}

// Counter reports how many entries the index holds
type Counter interface {
	Count() int
}

// Orchestrator runs a query end to end: retrieval, answer generation, and
// response assembly. It is stateless per request.
type Orchestrator struct {
	index       Counter
	retriever   Searcher
	generator   AnswerGenerator
	contextDocs int
}

// New creates an orchestrator. contextDocs bounds how many matches are
// passed to the generator; values <= 0 use DefaultContextDocs.
func New(index Counter, retriever Searcher, generator AnswerGenerator, contextDocs int) *Orchestrator {
	if contextDocs <= 0 {
		contextDocs = DefaultContextDocs
	}
	return &Orchestrator{
		index:       index,
		retriever:   retriever,
		generator:   generator,
		contextDocs: contextDocs,
	}
}

// Query answers a user question from the indexed documents.
func (o *Orchestrator) Query(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if o.index.Count() == 0 {
		return &Response{
			Query:   query,
			Outcome: OutcomeNoData,
			Message: "No documents have been indexed yet. Run an ingestion first.",
		}, nil
	}

	matches, err := o.retriever.Search(ctx, query)
	if err != nil {
		log.Printf("[Orchestrator] Retrieval failed for query %q: %v", query, err)
		return nil, ErrRetrieval
	}
	if len(matches) == 0 {
		return &Response{
			Query:   query,
			Outcome: OutcomeNoMatches,
			Message: "No relevant documents found. Try rephrasing your query.",
		}, nil
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Title:      m.Metadata[MetaTitle],
			Content:    contentPreview(m.Text),
			URL:        m.Metadata[MetaURL],
			Score:      m.Similarity,
			SpaceKey:   m.Metadata[MetaSpaceKey],
			ChunkIndex: parseChunkIndex(m.Metadata[MetaChunkIndex]),
		}
	}

	n := o.contextDocs
	if n > len(matches) {
		n = len(matches)
	}
	docs := make([]ai.ContextDoc, n)
	for i := 0; i < n; i++ {
		docs[i] = ai.ContextDoc{
			Title:      results[i].Title,
			Content:    results[i].Content,
			URL:        results[i].URL,
			Similarity: results[i].Score,
		}
	}

	answer, err := o.generator.Generate(ctx, query, docs)
	if err != nil {
		// Results are still useful without a synthesized answer.
		log.Printf("[Orchestrator] Answer generation failed for query %q: %v", query, err)
	} else {
		results[0].Answer = answer.Answer
		results[0].Provider = answer.Provider
	}

	return &Response{
		Query:   query,
		Outcome: OutcomeAnswered,
		Results: results,
	}, nil
}

// contentPreview strips the title prefix from indexed chunk text. Chunks are
// stored as "title\n\ncontent"; the preview is everything after the first
// blank line.
func contentPreview(text string) string {
	if _, rest, ok := strings.Cut(text, "\n\n"); ok {
		return rest
	}
	return text
}

func parseChunkIndex(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
