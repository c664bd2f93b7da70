package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"wikifinder/internal/ingest"
	"wikifinder/internal/rag"
	"wikifinder/internal/vectorindex"
)

// QueryService answers user questions over the indexed documents
type QueryService interface {
	Query(ctx context.Context, query string) (*rag.Response, error)
}

// VectorSearcher exposes raw vector search over the index
type VectorSearcher interface {
	Query(ctx context.Context, text string, k int) ([]vectorindex.Match, error)
	Count() int
}

// StatusSource reports the state of the snapshot and ingestion pipeline
type StatusSource interface {
	Status() ingest.Status
}

// Server is the HTTP API for search and status
type Server struct {
	port     int
	qa       QueryService
	index    VectorSearcher
	ingestor StatusSource
	provider string
}

// New creates a server. ingestor may be nil when the process runs without
// an ingestion pipeline.
func New(port int, qa QueryService, index VectorSearcher, ingestor StatusSource, providerName string) *Server {
	return &Server{
		port:     port,
		qa:       qa,
		index:    index,
		ingestor: ingestor,
		provider: providerName,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/search", http.HandlerFunc(s.handleSearch))
	mux.Handle("/api/vector/search", http.HandlerFunc(s.handleVectorSearch))
	mux.Handle("/api/status", http.HandlerFunc(s.handleStatus))
	mux.Handle("/api/import/status", http.HandlerFunc(s.handleImportStatus))
	mux.Handle("/api/health", http.HandlerFunc(s.handleHealth))

	return requestID(cors(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Printf("[Server] Listening on port %d", s.port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
