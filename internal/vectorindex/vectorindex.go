// Package vectorindex provides the vector index used for retrieval: it pairs
// an embedding capability with an exhaustive cosine-distance store, persists
// entries in SQLite, and normalizes distances into relevance scores.
//
// The index follows rebuild semantics: bulk ingestion clears the collection
// and re-inserts everything, so re-ingesting the same corpus always yields
// the same final state. There is no atomic swap; queries issued during a
// rebuild may see a momentarily empty or partial index, which callers treat
// as the ordinary "no data" case.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"wikifinder/internal/embedding"
)

// Common errors.
var (
	ErrDimMismatch = errors.New("vectorindex: vector dimension mismatch")
)

// Error wraps index errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vectorindex.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Entry is a chunk to be indexed.
type Entry struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Match is one nearest-neighbor result. Distance is the raw cosine distance
// from the store; Similarity is the normalized score in [0,1] computed by
// Similarity (the exponential-decay-aware formula).
type Match struct {
	ID         string
	Text       string
	Metadata   map[string]string
	Distance   float64
	Similarity float64
}

// indexed is an entry with its embedding, as held in memory and on disk.
type indexed struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Index is the vector index. Safe for concurrent readers; ingestion takes
// the write lock per batch.
type Index struct {
	embedder embedding.Embedder
	store    *store // nil when running purely in memory

	mu      sync.RWMutex
	entries []indexed
	byID    map[string]int
}

// New creates an index over the given embedder. If dbPath is non-empty the
// index persists to SQLite at that path and restores any previously saved
// entries (and TF-IDF vocabulary) on startup.
func New(embedder embedding.Embedder, dbPath string) (*Index, error) {
	idx := &Index{
		embedder: embedder,
		byID:     make(map[string]int),
	}

	if dbPath != "" {
		st, err := openStore(dbPath)
		if err != nil {
			return nil, wrapError("New", err)
		}
		idx.store = st

		if err := idx.load(context.Background()); err != nil {
			st.close()
			return nil, wrapError("New", err)
		}
	}

	return idx, nil
}

func (idx *Index) load(ctx context.Context) error {
	entries, err := idx.store.loadEntries(ctx)
	if err != nil {
		return err
	}
	idx.entries = entries
	idx.byID = make(map[string]int, len(entries))
	for i, e := range entries {
		idx.byID[e.ID] = i
	}

	// Restore TF-IDF vocabulary so query encoding matches what was indexed.
	if t, ok := idx.embedder.(*embedding.TFIDF); ok {
		state, err := idx.store.loadEmbedderState(ctx)
		if err != nil {
			return err
		}
		if err := t.Unmarshal(state); err != nil {
			return err
		}
	}

	return nil
}

// Upsert embeds and stores the given entries. Existing entries with the same
// ID are replaced in place; new IDs append in input order.
func (idx *Index) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return wrapError("Upsert", fmt.Errorf("embedding failed: %w", err))
	}
	if len(vectors) != len(entries) {
		return wrapError("Upsert", fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(entries)))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, e := range entries {
		item := indexed{
			ID:       e.ID,
			Vector:   vectors[i],
			Text:     e.Text,
			Metadata: e.Metadata,
		}
		if pos, ok := idx.byID[e.ID]; ok {
			idx.entries[pos] = item
		} else {
			idx.byID[e.ID] = len(idx.entries)
			idx.entries = append(idx.entries, item)
		}
	}

	return nil
}

// Clear removes all entries from memory and persistent storage. Bulk
// ingestion calls this first to get rebuild rather than merge semantics.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = nil
	idx.byID = make(map[string]int)

	if idx.store != nil {
		if err := idx.store.clear(ctx); err != nil {
			return wrapError("Clear", err)
		}
	}
	return nil
}

// Query encodes text once and returns up to k nearest entries by cosine
// distance, best first. An empty index yields an empty result, not an error.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	empty := len(idx.entries) == 0
	idx.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vectors, err := idx.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, wrapError("Query", fmt.Errorf("query embedding failed: %w", err))
	}
	query := vectors[0]

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, e := range idx.entries {
		d := float64(cosineDistance(query, e.Vector))
		matches = append(matches, Match{
			ID:         e.ID,
			Text:       e.Text,
			Metadata:   e.Metadata,
			Distance:   d,
			Similarity: Similarity(d),
		})
	}

	// Stable: ties keep store order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of indexed entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// IDs returns the chunk IDs currently indexed, in store order.
func (idx *Index) IDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		ids[i] = e.ID
	}
	return ids
}

// Save persists the current entries and, for the TF-IDF embedder, its trained
// vocabulary. A no-op without persistent storage.
func (idx *Index) Save(ctx context.Context) error {
	if idx.store == nil {
		return nil
	}

	idx.mu.RLock()
	entries := make([]indexed, len(idx.entries))
	copy(entries, idx.entries)
	idx.mu.RUnlock()

	if err := idx.store.saveEntries(ctx, entries); err != nil {
		return wrapError("Save", err)
	}

	if t, ok := idx.embedder.(*embedding.TFIDF); ok {
		state, err := t.Marshal()
		if err != nil {
			return wrapError("Save", err)
		}
		if err := idx.store.saveEmbedderState(ctx, state); err != nil {
			return wrapError("Save", err)
		}
	}

	return nil
}

// Embedder exposes the index's embedding capability (the ingestion pipeline
// trains it on the corpus before upserting).
func (idx *Index) Embedder() embedding.Embedder {
	return idx.embedder
}

// Close releases storage resources.
func (idx *Index) Close() error {
	if idx.store == nil {
		return nil
	}
	return idx.store.close()
}
