package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"wikifinder/internal/chunker"
	"wikifinder/internal/embedding"
	"wikifinder/internal/rag"
	"wikifinder/internal/vectorindex"
	"wikifinder/internal/wiki"
)

// WikiSource is the subset of the wiki client the pipeline needs
type WikiSource interface {
	Spaces(ctx context.Context) ([]wiki.Space, error)
	PagesInSpace(ctx context.Context, spaceKey string) ([]wiki.Page, error)
	PageURL(pageID string) string
}

// Status describes the current snapshot for the import status endpoint
type Status struct {
	SnapshotExists bool   `json:"snapshot_exists"`
	ExportTime     string `json:"export_time,omitempty"`
	TotalDocs      int    `json:"total_docs"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
	LastRun        string `json:"last_run,omitempty"`
}

// Pipeline exports wiki documents to a snapshot and loads the snapshot into
// the vector index.
type Pipeline struct {
	source       WikiSource
	index        *vectorindex.Index
	snapshotPath string
	maxTokens    int

	mu      sync.Mutex
	lastRun time.Time
}

// New creates an ingestion pipeline. source may be nil for import-only use.
func New(source WikiSource, index *vectorindex.Index, snapshotPath string, maxTokens int) *Pipeline {
	if maxTokens <= 0 {
		maxTokens = chunker.DefaultMaxTokens
	}
	return &Pipeline{
		source:       source,
		index:        index,
		snapshotPath: snapshotPath,
		maxTokens:    maxTokens,
	}
}

// Export fetches every page of every space and writes the snapshot
func (p *Pipeline) Export(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("no wiki source configured")
	}

	log.Printf("[Ingest] Starting document export")

	spaces, err := p.source.Spaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list spaces: %w", err)
	}

	var docs []Document
	for _, space := range spaces {
		log.Printf("[Ingest] Processing space: %s (%s)", space.Name, space.Key)

		pages, err := p.source.PagesInSpace(ctx, space.Key)
		if err != nil {
			log.Printf("[Ingest] Skipping space %s: %v", space.Key, err)
			continue
		}

		for _, page := range pages {
			docs = append(docs, Document{
				ID:         page.ID,
				Title:      page.Title,
				Content:    wiki.CleanHTML(page.Body.View.Value),
				URL:        p.source.PageURL(page.ID),
				SpaceKey:   space.Key,
				SpaceName:  space.Name,
				ExportedAt: time.Now().Format(time.RFC3339),
			})
		}
	}

	if err := WriteSnapshot(p.snapshotPath, docs); err != nil {
		return err
	}

	log.Printf("[Ingest] Exported %d documents to %s", len(docs), p.snapshotPath)
	return nil
}

// Import rebuilds the vector index from the snapshot. Importing the same
// snapshot twice produces the same entry count and chunk id set.
func (p *Pipeline) Import(ctx context.Context) error {
	snap, err := ReadSnapshot(p.snapshotPath)
	if err != nil {
		return err
	}

	log.Printf("[Ingest] Importing %d documents into the index", len(snap.Docs))

	var entries []vectorindex.Entry
	var corpus []string
	for _, doc := range snap.Docs {
		chunks, err := chunker.Split(doc.Content, p.maxTokens)
		if err != nil {
			return fmt.Errorf("failed to chunk document %s: %w", doc.ID, err)
		}

		for _, chunk := range chunks {
			text := doc.Title + "\n\n" + chunk.Text
			corpus = append(corpus, text)
			entries = append(entries, vectorindex.Entry{
				ID:   fmt.Sprintf("%s_%d", doc.ID, chunk.Index),
				Text: text,
				Metadata: map[string]string{
					rag.MetaTitle:      doc.Title,
					rag.MetaURL:        doc.URL,
					rag.MetaSpaceKey:   doc.SpaceKey,
					rag.MetaDocumentID: doc.ID,
					rag.MetaChunkIndex: strconv.Itoa(chunk.Index),
				},
			})
		}
	}

	if err := p.index.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	// Retrain corpus-derived embedders so query-time encoding matches the
	// freshly indexed entries.
	if tfidf, ok := p.index.Embedder().(*embedding.TFIDF); ok {
		tfidf.Train(corpus)
	}

	if err := p.index.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("failed to index entries: %w", err)
	}
	if err := p.index.Save(ctx); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	p.mu.Lock()
	p.lastRun = time.Now()
	p.mu.Unlock()

	log.Printf("[Ingest] Imported %d chunks from %d documents", len(entries), len(snap.Docs))
	return nil
}

// Full runs Export then Import, aborting if the export fails
func (p *Pipeline) Full(ctx context.Context) error {
	if err := p.Export(ctx); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := p.Import(ctx); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// Status reports the state of the snapshot file
func (p *Pipeline) Status() Status {
	var status Status

	p.mu.Lock()
	if !p.lastRun.IsZero() {
		status.LastRun = p.lastRun.Format(time.RFC3339)
	}
	p.mu.Unlock()

	info, err := os.Stat(p.snapshotPath)
	if err != nil {
		return status
	}
	status.SnapshotExists = true
	status.FileSizeBytes = info.Size()

	if snap, err := ReadSnapshot(p.snapshotPath); err == nil {
		status.ExportTime = snap.ExportTime
		status.TotalDocs = snap.TotalDocs
	}
	return status
}
