package server

import (
	"errors"
	"net/http"
	"strings"

	"waingest/internal/auth"
)

// requireAuth verifies the bearer token against the configured hash. With no
// hash configured the API is open (local use).
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiTokenHash == "" {
			next(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !auth.VerifyToken(s.apiTokenHash, strings.TrimSpace(token)) {
			s.writeError(w, http.StatusUnauthorized, errors.New("invalid or missing bearer token"))
			return
		}
		next(w, r)
	}
}
