// Package server exposes the triple store over HTTP: plan-based
// queries, triple ingestion and store statistics.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ternstore/ternstore/internal/query"
	"github.com/ternstore/ternstore/internal/store"
)

// Server represents the HTTP endpoint
type Server struct {
	store  *store.TripleStore
	engine *query.Engine
	addr   string
}

// NewServer creates a new HTTP server over the store
func NewServer(store *store.TripleStore, addr string) *Server {
	return &Server{
		store:  store,
		engine: query.NewEngine(store),
		addr:   addr,
	}
}

// Handler returns the HTTP handler serving all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/triples", s.handleTriples)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting query endpoint at http://%s/query", s.addr)
	return server.ListenAndServe()
}

// handleQuery evaluates a query plan and returns the solutions in
// SPARQL JSON results format.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	reader, err := s.store.Reader()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Storage error: %v", err))
		return
	}

	plan, err := buildPlan(reader, &req)
	reader.Close()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid plan: %v", err))
		return
	}

	result, err := s.engine.Select(plan, req.Select)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, query.ErrVariableNotFound) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, fmt.Sprintf("Query error: %v", err))
		return
	}

	data, err := formatSelectResults(result)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Encoding error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/sparql-results+json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleTriples inserts (POST) or removes (DELETE) triples
func (s *Server) handleTriples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST or DELETE")
		return
	}

	var req tripleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	triples, err := req.toTriples()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid triples: %v", err))
		return
	}

	startTime := time.Now()
	if r.Method == http.MethodPost {
		err = s.store.Insert(triples)
	} else {
		err = s.store.Delete(triples)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Storage error: %v", err))
		return
	}

	response := map[string]any{
		"success": true,
		"statistics": map[string]any{
			"triples":    len(triples),
			"durationMs": time.Since(startTime).Milliseconds(),
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// handleStats reports store statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET")
		return
	}

	count, err := s.store.Count()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Storage error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"triples": count})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
