package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"wikifinder/internal/rag"
	"wikifinder/internal/vectorindex"
)

// handleSearch handles POST /api/search
// Request: {"query": "question text"}
// Response: the full query result with retrieved documents and, when
// generation succeeded, an answer attached to the first result.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := s.qa.Query(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			writeJSONError(w, http.StatusBadRequest, "query cannot be empty")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "search failed, please try again later")
		return
	}

	if resp.Outcome == rag.OutcomeNoData {
		writeJSONError(w, http.StatusBadRequest, "no documents indexed, please run an ingestion first")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleVectorSearch handles POST /api/vector/search
// Request: {"query": "search text", "limit": 10}
// Response: raw matches scored with the reciprocal distance formula.
func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Query == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	matches, err := s.index.Query(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "search failed")
		return
	}

	type vectorResult struct {
		ID       string            `json:"id"`
		Text     string            `json:"text"`
		Metadata map[string]string `json:"metadata,omitempty"`
		Distance float64           `json:"distance"`
		Score    float64           `json:"score"`
	}
	results := make([]vectorResult, len(matches))
	for i, m := range matches {
		results[i] = vectorResult{
			ID:       m.ID,
			Text:     m.Text,
			Metadata: m.Metadata,
			Distance: m.Distance,
			Score:    vectorindex.ReciprocalSimilarity(m.Distance),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := map[string]interface{}{
		"status": "healthy",
		"collection_stats": map[string]interface{}{
			"total_documents": s.index.Count(),
		},
		"ai_provider": s.provider,
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if s.ingestor != nil {
		status := s.ingestor.Status()
		resp["data_exported"] = status.SnapshotExists
		resp["export_info"] = status
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleImportStatus handles GET /api/import/status
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.ingestor == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data_exists": false,
			"message":     "Ingestion is not configured for this process",
		})
		return
	}

	status := s.ingestor.Status()
	if !status.SnapshotExists {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data_exists": false,
			"message":     "Local data does not exist, please run an ingestion",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data_exists": true,
		"export_info": status,
		"collection_stats": map[string]interface{}{
			"total_documents": s.index.Count(),
		},
		"message": "Local data is ready",
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
