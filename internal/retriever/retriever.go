// Package retriever turns a user query into a similarity-ranked list of
// document chunks.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"wikifinder/internal/vectorindex"
)

// DefaultTopK is the default number of chunks returned per query.
const DefaultTopK = 5

// Retriever is a thin composition over the vector index: one query encode,
// one nearest-neighbor search, then a rank by normalized similarity.
type Retriever struct {
	index *vectorindex.Index
	topK  int
}

// New creates a retriever. topK <= 0 selects DefaultTopK.
func New(index *vectorindex.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, topK: topK}
}

// TopK returns the configured result count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Search returns up to topK matches ranked by descending similarity, ties
// keeping the store's order. An empty index or no matches yields an empty
// slice, not an error - callers treat that as "insufficient data".
func (r *Retriever) Search(ctx context.Context, query string) ([]vectorindex.Match, error) {
	matches, err := r.index.Query(ctx, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retriever: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// The index orders by raw distance; the normalized score is what ranks
	// results for callers, and the two orders can differ where the score
	// formula switches branches.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > r.topK {
		matches = matches[:r.topK]
	}
	return matches, nil
}
