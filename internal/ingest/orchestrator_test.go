package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"waingest/internal/blobstore"
	"waingest/internal/docstore"
	"waingest/internal/eventlog"
	"waingest/internal/identity"
	"waingest/internal/ledger"
	"waingest/internal/models"
)

const (
	testBucket    = "whatsapp-media"
	testChatName  = "Conversa do WhatsApp com Equipe.txt"
	testChatLines = "01/02/2023 09:15 - Alice: Hello\n" +
		"world\n" +
		"01/02/2023 09:16 - Meeting created\n" +
		"01/02/2023 09:17 - Bob: IMG-20230201-WA0001.jpg (arquivo anexado)\n"
)

type env struct {
	docs *docstore.SQLite
	orch *Orchestrator
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	docs, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	backend, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new blob backend: %v", err)
	}
	blobs := blobstore.New(backend, nil)

	orch := New(blobs, ledger.NewWriter(docs, nil), eventlog.New(docs, EventSource, nil), testBucket, 2, nil)
	return &env{docs: docs, orch: orch}
}

// newSubmission builds an unpacked submission dir with the chat export and
// one media file. Directories are created fresh per call because a run
// removes its working directory.
func newSubmission(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp(t.TempDir(), "run-*")
	if err != nil {
		t.Fatalf("make submission dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, testChatName), []byte(testChatLines), 0o644); err != nil {
		t.Fatalf("write chat file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "IMG-20230201-WA0001.jpg"), []byte("image bytes"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write hidden file: %v", err)
	}
	return dir
}

func TestRunCompletes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	dir := newSubmission(t)

	if err := e.orch.RunTask(ctx, "task-1", dir, "export.zip"); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("working directory must be removed after the run")
	}

	event, err := e.docs.Get(ctx, eventlog.Collection+"/task-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event["status"] != models.RunStatusCompleted {
		t.Fatalf("expected completed status, got %#v", event)
	}

	// The dated author-less line joins Alice's open message, so the export
	// yields two messages.
	groupID := identity.GroupID("Equipe")
	ids, err := e.docs.ListIDs(ctx, ledger.MessagesPath(groupID))
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(ids))
	}

	// The media message must carry the blob reference.
	var withMedia map[string]any
	for _, id := range ids {
		fields, err := e.docs.Get(ctx, ledger.MessagesPath(groupID)+"/"+id)
		if err != nil {
			t.Fatalf("get message: %v", err)
		}
		if fields["has_media"] == true {
			withMedia = fields
		}
	}
	if withMedia == nil {
		t.Fatalf("no media message persisted")
	}
	media, ok := withMedia["media"].(map[string]any)
	if !ok {
		t.Fatalf("expected media reference, got %#v", withMedia)
	}
	if media["original_filename"] != "IMG-20230201-WA0001.jpg" {
		t.Fatalf("unexpected media reference: %#v", media)
	}
	uri, _ := media["storage_uri"].(string)
	if !strings.Contains(uri, testBucket) {
		t.Fatalf("storage uri must point into the bucket: %q", uri)
	}
}

func TestRunIdempotentAcrossRuns(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if err := e.orch.RunTask(ctx, "task-1", newSubmission(t), "export.zip"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := e.orch.RunTask(ctx, "task-2", newSubmission(t), "export.zip"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	ids, err := e.docs.ListIDs(ctx, ledger.MessagesPath(identity.GroupID("Equipe")))
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("re-ingestion must not duplicate messages: got %d", len(ids))
	}
}

func TestRunMissingChatFileRecordsError(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	dir, err := os.MkdirTemp(t.TempDir(), "run-*")
	if err != nil {
		t.Fatalf("make dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "IMG-20230201-WA0001.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	if err := e.orch.RunTask(ctx, "task-err", dir, "export.zip"); err == nil {
		t.Fatalf("expected error for missing chat file")
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("working directory must be removed on failure too")
	}

	event, err := e.docs.Get(ctx, eventlog.Collection+"/task-err")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event["status"] != models.RunStatusError {
		t.Fatalf("expected error status, got %#v", event)
	}
}

func TestRunEmptyParseRecordsError(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	dir, err := os.MkdirTemp(t.TempDir(), "run-*")
	if err != nil {
		t.Fatalf("make dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, testChatName), []byte("not a chat line\n"), 0o644); err != nil {
		t.Fatalf("write chat file: %v", err)
	}

	if err := e.orch.RunTask(ctx, "task-empty", dir, "export.zip"); err == nil {
		t.Fatalf("expected error for empty parse result")
	}
	event, err := e.docs.Get(ctx, eventlog.Collection+"/task-empty")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event["status"] != models.RunStatusError {
		t.Fatalf("expected error status, got %#v", event)
	}
}

func TestRunMediaUploadFailureDoesNotAbort(t *testing.T) {
	// Point the media placeholder at a filename that is not in the
	// submission; the bulk upload map stays empty and the message degrades
	// to upload_failed.
	e := newTestEnv(t)
	ctx := context.Background()

	dir, err := os.MkdirTemp(t.TempDir(), "run-*")
	if err != nil {
		t.Fatalf("make dir: %v", err)
	}
	chat := "01/02/2023 09:17 - Bob: IMG-20230201-WA0009.jpg (arquivo anexado)\n"
	if err := os.WriteFile(filepath.Join(dir, testChatName), []byte(chat), 0o644); err != nil {
		t.Fatalf("write chat file: %v", err)
	}

	if err := e.orch.RunTask(ctx, "task-media", dir, "export.zip"); err != nil {
		t.Fatalf("run must not fail on a missing attachment: %v", err)
	}

	groupID := identity.GroupID("Equipe")
	ids, err := e.docs.ListIDs(ctx, ledger.MessagesPath(groupID))
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected 1 persisted message, got %v (%v)", ids, err)
	}
	fields, err := e.docs.Get(ctx, ledger.MessagesPath(groupID)+"/"+ids[0])
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if fields["media_analysis_status"] != models.MediaStatusUploadFailed {
		t.Fatalf("expected upload_failed, got %#v", fields)
	}
	if _, ok := fields["media"]; ok {
		t.Fatalf("failed media must not be referenced: %#v", fields)
	}
}
