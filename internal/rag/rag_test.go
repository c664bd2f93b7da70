package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikifinder/internal/ai"
	"wikifinder/internal/vectorindex"
)

type stubIndex struct{ count int }

func (s *stubIndex) Count() int { return s.count }

type stubRetriever struct {
	matches []vectorindex.Match
	err     error
	queries []string
}

func (s *stubRetriever) Search(_ context.Context, query string) ([]vectorindex.Match, error) {
	s.queries = append(s.queries, query)
	return s.matches, s.err
}

type stubGenerator struct {
	result *ai.AnswerResult
	err    error
	calls  int
	docs   []ai.ContextDoc
}

func (s *stubGenerator) Generate(_ context.Context, _ string, docs []ai.ContextDoc) (*ai.AnswerResult, error) {
	s.calls++
	s.docs = docs
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func fiveMatches() []vectorindex.Match {
	matches := make([]vectorindex.Match, 5)
	titles := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	for i, title := range titles {
		matches[i] = vectorindex.Match{
			ID:   "doc_" + title,
			Text: title + "\n\nBody of " + title + ".",
			Metadata: map[string]string{
				MetaTitle:      title,
				MetaURL:        "https://wiki/" + title,
				MetaSpaceKey:   "ENG",
				MetaChunkIndex: "0",
			},
			Similarity: 1.0 - float64(i)*0.1,
		}
	}
	return matches
}

func TestQueryEmpty(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{}
	o := New(&stubIndex{count: 10}, retriever, generator, 3)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := o.Query(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery, "query %q", q)
	}
	assert.Empty(t, retriever.queries, "no retrieval for empty queries")
	assert.Zero(t, generator.calls, "no generation for empty queries")
}

func TestQueryEmptyIndex(t *testing.T) {
	retriever := &stubRetriever{}
	o := New(&stubIndex{count: 0}, retriever, &stubGenerator{}, 3)

	resp, err := o.Query(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoData, resp.Outcome)
	assert.Empty(t, resp.Results)
	assert.Empty(t, retriever.queries)
}

func TestQueryNoMatches(t *testing.T) {
	generator := &stubGenerator{}
	o := New(&stubIndex{count: 10}, &stubRetriever{}, generator, 3)

	resp, err := o.Query(context.Background(), "obscure")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatches, resp.Outcome)
	assert.Zero(t, generator.calls, "generation skipped with no matches")
}

func TestQueryAnswerOnFirstResultOnly(t *testing.T) {
	generator := &stubGenerator{result: &ai.AnswerResult{Answer: "the answer", Provider: "kimi"}}
	o := New(&stubIndex{count: 10}, &stubRetriever{matches: fiveMatches()}, generator, 3)

	resp, err := o.Query(context.Background(), "what is alpha?")
	require.NoError(t, err)
	require.Len(t, resp.Results, 5)

	assert.Equal(t, "the answer", resp.Results[0].Answer)
	assert.Equal(t, "kimi", resp.Results[0].Provider)
	for i := 1; i < len(resp.Results); i++ {
		assert.Empty(t, resp.Results[i].Answer, "result %d must carry no answer", i)
	}
}

func TestQueryContextDocsBounded(t *testing.T) {
	generator := &stubGenerator{result: &ai.AnswerResult{Answer: "a", Provider: "p"}}
	o := New(&stubIndex{count: 10}, &stubRetriever{matches: fiveMatches()}, generator, 3)

	_, err := o.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, generator.docs, 3, "generation sees only the top context docs")
	assert.Equal(t, "Alpha", generator.docs[0].Title)
}

func TestQueryContentPreviewStripsTitle(t *testing.T) {
	generator := &stubGenerator{result: &ai.AnswerResult{Answer: "a", Provider: "p"}}
	o := New(&stubIndex{count: 10}, &stubRetriever{matches: fiveMatches()}, generator, 3)

	resp, err := o.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Body of Alpha.", resp.Results[0].Content)
	assert.Equal(t, "Alpha", resp.Results[0].Title)
}

func TestQueryGenerationFailureStillReturnsResults(t *testing.T) {
	generator := &stubGenerator{err: errors.New("all providers down")}
	o := New(&stubIndex{count: 10}, &stubRetriever{matches: fiveMatches()}, generator, 3)

	resp, err := o.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, resp.Outcome)
	require.Len(t, resp.Results, 5)
	assert.Empty(t, resp.Results[0].Answer)
}

func TestQueryRetrievalFailure(t *testing.T) {
	o := New(&stubIndex{count: 10}, &stubRetriever{err: errors.New("db locked")}, &stubGenerator{}, 3)

	_, err := o.Query(context.Background(), "q")
	require.ErrorIs(t, err, ErrRetrieval)
	assert.NotContains(t, err.Error(), "db locked", "internal detail must not surface")
}
