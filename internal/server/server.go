// Package server exposes the ingestion service over HTTP: export upload,
// run status and a small read API over groups and messages.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"waingest/internal/config"
	"waingest/internal/docstore"
	"waingest/internal/ingest"
)

const (
	allowRemoteEnvKey = "WAINGEST_ALLOW_REMOTE"

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 5 * time.Minute
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second

	uploadConcurrencyLimit = 2
)

// Server wraps HTTP handlers for the waingest API.
type Server struct {
	addr          string
	docs          docstore.Backend
	orchestrator  *ingest.Orchestrator
	logger        *slog.Logger
	apiTokenHash  string
	maxUploadBody int64
	multipartMem  int64
	tmpRoot       string
	uploadLimiter chan struct{}

	// background tracks in-flight ingestion runs so tests and shutdown can
	// wait for them.
	background sync.WaitGroup
}

// New creates a new server instance.
func New(addr string, docs docstore.Backend, orchestrator *ingest.Orchestrator, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := config.DefaultMaxUploadBytes
	multipartMem := config.DefaultMultipartMaxMemory
	tokenHash := ""
	if cfg != nil {
		if cfg.Ingest.MaxUploadBytes > 0 {
			maxUpload = cfg.Ingest.MaxUploadBytes
		}
		if cfg.Ingest.MultipartMaxMemory > 0 {
			multipartMem = cfg.Ingest.MultipartMaxMemory
		}
		tokenHash = strings.TrimSpace(cfg.APITokenHash)
	}

	return &Server{
		addr:          addr,
		docs:          docs,
		orchestrator:  orchestrator,
		logger:        logger,
		apiTokenHash:  tokenHash,
		maxUploadBody: maxUpload,
		multipartMem:  multipartMem,
		tmpRoot:       os.TempDir(),
		uploadLimiter: make(chan struct{}, uploadConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return server.ListenAndServe()
}

// WaitBackground blocks until all in-flight ingestion runs finish.
func (s *Server) WaitBackground() {
	s.background.Wait()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}
	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, name string) bool {
	select {
	case limiter <- struct{}{}:
		return true
	default:
		s.writeError(w, http.StatusTooManyRequests,
			fmt.Errorf("too many concurrent %s requests", name))
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	select {
	case <-limiter:
	default:
	}
}
