// Package embedding converts text into fixed-dimension vectors for the
// vector index. Two implementations are provided: an offline TF-IDF embedder
// trained on the ingested corpus, and a client for the OpenAI embeddings API.
package embedding

import "context"

// Embedder converts text to vectors. Implementations must be deterministic
// for identical input and safe for concurrent use after construction (or,
// for TF-IDF, after training).
type Embedder interface {
	// Embed converts texts to vectors (batched for efficiency).
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	// Name identifies the embedder.
	Name() string
}
