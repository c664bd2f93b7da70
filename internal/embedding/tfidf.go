package embedding

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// DefaultDims is the default maximum vocabulary size for the TF-IDF embedder.
const DefaultDims = 4096

// TFIDF is an offline TF-IDF text embedder. It is trained once on the corpus
// during ingestion; query-time encoding reuses the trained vocabulary so
// query vectors and document vectors live in the same space. The trained
// state can be exported and restored alongside the vector index so a process
// restart does not change the encoding.
type TFIDF struct {
	vocabulary map[string]int // word -> vector index
	idf        []float32
	maxDims    int
	trained    bool
	mu         sync.RWMutex
}

// NewTFIDF creates a TF-IDF embedder with the given maximum vocabulary size.
func NewTFIDF(maxDims int) *TFIDF {
	if maxDims <= 0 {
		maxDims = DefaultDims
	}
	return &TFIDF{
		vocabulary: make(map[string]int),
		maxDims:    maxDims,
	}
}

// Train builds the vocabulary and IDF table from a corpus. Word order in the
// vocabulary is deterministic (document frequency desc, then word asc), so
// training on the same corpus twice produces identical vectors.
func (t *TFIDF) Train(documents []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	df := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, word := range tokenizeWords(doc) {
			if !seen[word] {
				df[word]++
				seen[word] = true
			}
		}
	}

	type wordFreq struct {
		word string
		freq int
	}
	wf := make([]wordFreq, 0, len(df))
	for w, f := range df {
		wf = append(wf, wordFreq{w, f})
	}
	sort.Slice(wf, func(i, j int) bool {
		if wf[i].freq != wf[j].freq {
			return wf[i].freq > wf[j].freq
		}
		return wf[i].word < wf[j].word
	})

	if len(wf) > t.maxDims {
		wf = wf[:t.maxDims]
	}

	t.vocabulary = make(map[string]int, len(wf))
	t.idf = make([]float32, len(wf))
	n := float64(len(documents))

	for i, w := range wf {
		t.vocabulary[w.word] = i
		t.idf[i] = float32(math.Log(n / float64(w.freq)))
	}

	t.trained = true
}

// Trained reports whether the embedder has a vocabulary.
func (t *TFIDF) Trained() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trained
}

// Embed converts texts to L2-normalized TF-IDF vectors. If the embedder has
// not been trained it trains on the provided texts first (the bulk ingestion
// path trains explicitly on the full corpus before embedding).
func (t *TFIDF) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	t.mu.RLock()
	trained := t.trained
	t.mu.RUnlock()

	if !trained {
		t.Train(texts)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	dims := len(t.vocabulary)
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, dims)
		words := tokenizeWords(text)

		tf := make(map[string]int)
		for _, w := range words {
			tf[w]++
		}

		for word, count := range tf {
			if idx, ok := t.vocabulary[word]; ok {
				tfVal := float32(count) / float32(len(words))
				vec[idx] = tfVal * t.idf[idx]
			}
		}

		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = float32(math.Sqrt(float64(norm)))
			for j := range vec {
				vec[j] /= norm
			}
		}

		vectors[i] = vec
	}

	return vectors, nil
}

// Dimensions returns the vocabulary size.
func (t *TFIDF) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vocabulary)
}

// Name returns the embedder name.
func (t *TFIDF) Name() string {
	return "tfidf"
}

type tfidfState struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float32      `json:"idf"`
	MaxDims    int            `json:"max_dims"`
}

// Marshal exports the trained state for persistence.
func (t *TFIDF) Marshal() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.trained {
		return nil, nil
	}
	return json.Marshal(tfidfState{
		Vocabulary: t.vocabulary,
		IDF:        t.idf,
		MaxDims:    t.maxDims,
	})
}

// Unmarshal restores trained state exported by Marshal. A nil or empty blob
// leaves the embedder untrained.
func (t *TFIDF) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var state tfidfState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.vocabulary = state.Vocabulary
	t.idf = state.IDF
	if state.MaxDims > 0 {
		t.maxDims = state.MaxDims
	}
	t.trained = len(t.vocabulary) > 0
	return nil
}

// tokenizeWords splits text into lowercase alphanumeric words.
func tokenizeWords(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}

	return words
}
