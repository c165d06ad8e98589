package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/haldane/peritext/internal/storage"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	ID string `json:"id"`
}

// CreateDocumentResponse is the response body for creating a document.
type CreateDocumentResponse struct {
	ID string `json:"id"`
}

// TextRunResponse is the wire shape of one document.TextRun.
type TextRunResponse struct {
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// GetDocumentResponse is the response body for getting a document.
type GetDocumentResponse struct {
	ID    string            `json:"id"`
	Runs  []TextRunResponse `json:"runs"`
	Clock map[string]uint64 `json:"clock"`
}

// handleCreateDocument handles POST /documents.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "document ID is required", http.StatusBadRequest)
		return
	}

	if err := s.store.CreateDocument(req.ID); err != nil {
		if errors.Is(err, storage.ErrDocumentExists) {
			http.Error(w, "document already exists", http.StatusConflict)
			return
		}

		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := s.manager.GetOrCreateSession(req.ID); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(CreateDocumentResponse(req)); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// handleGetDocument handles GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := extractDocID(r.URL.Path, "/documents/")
	if docID == "" {
		http.Error(w, "document ID is required", http.StatusBadRequest)
		return
	}

	session, err := s.manager.GetOrCreateSession(docID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	runs, clk, err := session.GetState()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := GetDocumentResponse{ID: docID, Runs: make([]TextRunResponse, 0, len(runs)), Clock: make(map[string]uint64, len(clk))}
	for _, run := range runs {
		marks := make([]string, 0, len(run.Marks))
		for m := range run.Marks {
			marks = append(marks, m.String())
		}
		resp.Runs = append(resp.Runs, TextRunResponse{Text: run.Text, Marks: marks})
	}
	for actor, n := range clk {
		resp.Clock[string(actor)] = n
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// extractDocID extracts the document ID from a URL path.
func extractDocID(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	return strings.TrimPrefix(path, prefix)
}
