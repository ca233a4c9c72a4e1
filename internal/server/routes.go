package server

import "net/http"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Ingestion.
	mux.HandleFunc("POST /v1/ingest/upload", s.requireAuth(s.handleUpload))
	mux.HandleFunc("GET /v1/ingest/tasks/{id}", s.requireAuth(s.handleTaskStatus))

	// Read API.
	mux.HandleFunc("GET /v1/groups", s.requireAuth(s.handleListGroups))
	mux.HandleFunc("GET /v1/groups/{id}/messages", s.requireAuth(s.handleListMessages))

	return mux
}
