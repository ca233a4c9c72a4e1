// Package eventlog records ingestion-run lifecycle events in the
// system_logs collection. Writes are fire-and-forget: a failing event log
// must never abort a run.
package eventlog

import (
	"context"
	"log/slog"
	"time"

	"waingest/internal/docstore"
)

// Collection holds one document per ingestion run, keyed by task ID.
const Collection = "system_logs"

// Sink upserts run lifecycle events, merge semantics per task ID.
type Sink struct {
	docs   docstore.Backend
	source string
	logger *slog.Logger
}

// New creates a Sink tagging every entry with source.
func New(docs docstore.Backend, source string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{docs: docs, source: source, logger: logger}
}

// Record upserts the run's log entry. Failures are logged and swallowed.
func (s *Sink) Record(ctx context.Context, taskID, details, status string) {
	if s == nil || s.docs == nil {
		return
	}
	err := s.docs.Upsert(ctx, Collection+"/"+taskID, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    s.source,
		"details":   details,
		"status":    status,
	}, true)
	if err != nil {
		s.logger.Error("record system event", "task_id", taskID, "status", status, "error", err)
	}
}
