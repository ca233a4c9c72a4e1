// Package ingest sequences one ingestion run: locate the chat export and
// its media in an unpacked submission, parse, upload media, persist
// messages, and record lifecycle events.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"waingest/internal/blobstore"
	"waingest/internal/eventlog"
	"waingest/internal/ledger"
	"waingest/internal/models"
	"waingest/internal/parser"
)

// EventSource tags every system-log entry written by this pipeline.
const EventSource = "whatsapp_ingestion"

// Orchestrator runs ingestion passes over unpacked chat-export submissions.
type Orchestrator struct {
	blobs   *blobstore.Store
	writer  *ledger.Writer
	events  *eventlog.Sink
	bucket  string
	workers int
	logger  *slog.Logger
}

// New creates an Orchestrator. workers bounds concurrent media uploads.
func New(blobs *blobstore.Store, writer *ledger.Writer, events *eventlog.Sink, bucket string, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		blobs:   blobs,
		writer:  writer,
		events:  events,
		bucket:  bucket,
		workers: workers,
		logger:  logger,
	}
}

// NewTaskID returns a fresh ingestion-run task ID.
func NewTaskID() string {
	return uuid.NewString()
}

// Run executes one ingestion pass under a fresh task ID. See RunTask.
func (o *Orchestrator) Run(ctx context.Context, workDir, originalFilename string) error {
	return o.RunTask(ctx, NewTaskID(), workDir, originalFilename)
}

// RunTask executes one ingestion pass over the unpacked submission in
// workDir. The run's lifecycle is recorded to the event sink under taskID
// and the working directory is removed on every exit path. The returned
// error mirrors what was recorded; callers running in the background may
// ignore it.
func (o *Orchestrator) RunTask(ctx context.Context, taskID, workDir, originalFilename string) error {
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			o.logger.Error("clean working directory", "dir", workDir, "error", err)
		}
	}()

	o.events.Record(ctx, taskID, fmt.Sprintf("ingestion started for %s", originalFilename), models.RunStatusRunning)
	o.logger.Info("ingestion run started", "task_id", taskID, "file", originalFilename, "dir", workDir)

	if err := o.run(ctx, workDir); err != nil {
		o.logger.Error("ingestion run failed", "task_id", taskID, "file", originalFilename, "error", err)
		o.events.Record(ctx, taskID, fmt.Sprintf("ingestion of %s failed: %v", originalFilename, err), models.RunStatusError)
		return err
	}

	o.events.Record(ctx, taskID, fmt.Sprintf("ingestion of %s completed", originalFilename), models.RunStatusCompleted)
	o.logger.Info("ingestion run completed", "task_id", taskID, "file", originalFilename)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, workDir string) error {
	chatPath, mediaPaths, err := locateSubmission(workDir)
	if err != nil {
		return err
	}

	groupName, msgs := parser.ParseFile(chatPath)
	if len(msgs) == 0 {
		return fmt.Errorf("no messages parsed from %s", filepath.Base(chatPath))
	}
	o.logger.Info("parsed chat export",
		"group", groupName, "messages", len(msgs), "media_files", len(mediaPaths))

	metadata := o.uploadMedia(ctx, mediaPaths)

	if _, err := o.writer.Save(ctx, groupName, msgs, ledger.MetadataMap(metadata)); err != nil {
		return err
	}
	return nil
}

// locateSubmission finds the single chat text file and the accompanying
// media files under workDir. Hidden files are ignored.
func locateSubmission(workDir string) (string, []string, error) {
	var chatPath string
	var media []string

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".txt") {
			chatPath = path
			return nil
		}
		media = append(media, path)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if chatPath == "" {
		return "", nil, errors.New("no chat export (.txt) found in submission")
	}
	return chatPath, media, nil
}

// uploadMedia pushes every media file, keyed by original filename. A failed
// upload only drops that file from the returned map; the run continues.
func (o *Orchestrator) uploadMedia(ctx context.Context, paths []string) map[string]models.MediaRef {
	out := make(map[string]models.MediaRef, len(paths))
	if len(paths) == 0 {
		return out
	}

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		o.logger.Error("create upload pool, falling back to sequential uploads", "error", err)
	} else {
		defer pool.Release()
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, mediaPath := range paths {
		upload := func() {
			defer wg.Done()
			name := filepath.Base(mediaPath)
			res, err := o.blobs.Upload(ctx, mediaPath, o.bucket, "")
			if err != nil {
				o.logger.Warn("media upload failed", "file", name, "error", err)
				return
			}
			mu.Lock()
			out[name] = models.MediaRef{
				OriginalFilename: name,
				StorageURI:       res.URI,
				SHA256:           res.SHA256,
				MediaType:        res.MediaType,
			}
			mu.Unlock()
		}

		wg.Add(1)
		if pool == nil || pool.Submit(upload) != nil {
			upload()
		}
	}
	wg.Wait()
	return out
}
