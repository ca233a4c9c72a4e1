package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"waingest/internal/api"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write json response", "status", status, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	message := err.Error()

	switch {
	case status >= 500:
		s.logger.Error("request error", "status", status, "error", err)
		message = "internal error"
	case status >= 400:
		s.logger.Warn("request rejected", "status", status, "error", err)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: errorCode(status)})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	default:
		return "internal"
	}
}
