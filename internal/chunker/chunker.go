// Package chunker splits document text into token-bounded chunks for
// embedding and retrieval.
//
// The split is a hard token-count split with no semantic boundary awareness:
// it may cut mid-sentence. That is deliberate - it keeps chunking fast and
// deterministic, and downstream consumers only care about the token budget.
package chunker

import (
	"errors"
	"strings"
	"unicode"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 800

// ErrInvalidChunkSize is returned when the token budget is not positive.
var ErrInvalidChunkSize = errors.New("chunker: max tokens must be positive")

// Chunk is one token-bounded piece of a document.
type Chunk struct {
	Text       string
	Index      int
	TokenCount int
}

// Tokenize splits text into word tokens on Unicode whitespace. The tokenizer
// is deterministic: the same text always yields the same token sequence, and
// Detokenize(Tokenize(s)) round-trips the token stream exactly.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// Detokenize reassembles a token sequence into text.
func Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}

// CountTokens returns the number of word tokens in text without allocating
// the token slice.
func CountTokens(text string) int {
	count := 0
	inWord := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	if inWord {
		count++
	}

	return count
}

// Split divides text into chunks of at most maxTokens tokens each. A text of
// N tokens produces ceil(N/maxTokens) chunks; concatenating the chunks' token
// streams in order reproduces the original token stream with no loss,
// duplication, or reordering. Empty or whitespace-only text yields zero
// chunks.
func Split(text string, maxTokens int) ([]Chunk, error) {
	if maxTokens <= 0 {
		return nil, ErrInvalidChunkSize
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, Chunk{
			Text:       Detokenize(tokens[start:end]),
			Index:      len(chunks),
			TokenCount: end - start,
		})
	}

	return chunks, nil
}
