package main

import (
	"fmt"
	"log/slog"

	"waingest/internal/blobstore"
	"waingest/internal/config"
	"waingest/internal/docstore"
	"waingest/internal/eventlog"
	"waingest/internal/ingest"
	"waingest/internal/ledger"
)

// openPipeline wires the document store, blob store and orchestrator from
// configuration. The caller owns closing the returned store.
func openPipeline(cfg *config.Config, logger *slog.Logger) (*docstore.SQLite, *ingest.Orchestrator, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, nil, fmt.Errorf("db path is required")
	}

	logger.Info("opening database", "path", cfg.DBPath)
	docs, err := docstore.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	backend, err := blobstore.NewLocal(cfg.BlobRoot)
	if err != nil {
		_ = docs.Close()
		return nil, nil, err
	}
	blobs := blobstore.New(backend, logger)

	orch := ingest.New(blobs,
		ledger.NewWriter(docs, logger),
		eventlog.New(docs, ingest.EventSource, logger),
		cfg.Bucket, cfg.Ingest.UploadWorkers, logger)
	return docs, orch, nil
}
