// Package ledger persists parsed chat messages into the document store,
// deduplicated by deterministic message IDs and committed in bounded
// transactional batches.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"waingest/internal/docstore"
	"waingest/internal/identity"
	"waingest/internal/models"
)

// GroupsCollection is the top-level collection holding group documents;
// each group document owns a "messages" subcollection.
const GroupsCollection = "whatsapp_groups"

// flushThreshold stays just under the store's 500-op batch cap.
const flushThreshold = 499

// SaveResult counts message dispositions for one save pass.
type SaveResult struct {
	Saved       int
	Skipped     int
	MediaFailed int
}

// Writer merges parsed messages with media metadata and writes new messages
// to the document store.
type Writer struct {
	docs   docstore.Backend
	logger *slog.Logger
}

// NewWriter creates a Writer on top of docs.
func NewWriter(docs docstore.Backend, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{docs: docs, logger: logger}
}

// GroupPath returns the document path of a group.
func GroupPath(groupID string) string {
	return GroupsCollection + "/" + groupID
}

// MessagesPath returns the collection path of a group's messages.
func MessagesPath(groupID string) string {
	return GroupPath(groupID) + "/messages"
}

// Save upserts the group record and persists every message not already
// present under its deterministic ID. Messages already persisted are never
// rewritten, and their attachments are never resolved again. A message whose
// attachment cannot be stored is still persisted, marked upload_failed.
func (w *Writer) Save(ctx context.Context, groupName string, msgs []models.ParsedMessage, resolver MediaResolver) (SaveResult, error) {
	var result SaveResult
	if w == nil || w.docs == nil {
		return result, fmt.Errorf("ledger writer is not configured")
	}

	groupID := identity.GroupID(groupName)
	err := w.docs.Upsert(ctx, GroupPath(groupID), map[string]any{
		"group_name":          groupName,
		"last_ingestion_date": time.Now().UTC().Format(time.RFC3339),
	}, true)
	if err != nil {
		// Group metadata is advisory; message persistence still proceeds.
		w.logger.Error("upsert group metadata", "group", groupName, "error", err)
	}

	existing, err := w.docs.ListIDs(ctx, MessagesPath(groupID))
	if err != nil {
		return result, fmt.Errorf("list existing messages for %s: %w", groupName, err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	w.logger.Info("loaded existing message ids", "group", groupName, "count", len(existing))

	batch := w.docs.NewBatch()
	for _, msg := range msgs {
		id := identity.MessageID(msg.Timestamp, msg.Author, msg.Text)
		if _, ok := seen[id]; ok {
			result.Skipped++
			continue
		}
		// At most one write attempt per distinct ID per run.
		seen[id] = struct{}{}

		fields := messageFields(msg)
		if msg.HasMedia && msg.MediaFilename != "" && resolver != nil {
			ref, err := resolver.Resolve(ctx, msg.MediaFilename, groupName, id)
			switch {
			case err != nil:
				w.logger.Warn("media resolution failed", "message_id", id, "filename", msg.MediaFilename, "error", err)
				fields["media_analysis_status"] = models.MediaStatusUploadFailed
				result.MediaFailed++
			case ref == nil:
				w.logger.Warn("media metadata missing", "message_id", id, "filename", msg.MediaFilename)
				fields["media_analysis_status"] = models.MediaStatusUploadFailed
				result.MediaFailed++
			default:
				fields["media"] = map[string]any{
					"original_filename": ref.OriginalFilename,
					"storage_uri":       ref.StorageURI,
					"hash_sha256":       ref.SHA256,
					"media_type":        ref.MediaType,
				}
			}
		}

		batch.Set(MessagesPath(groupID)+"/"+id, fields)
		result.Saved++

		if batch.Len() >= flushThreshold {
			w.logger.Info("committing message batch", "group", groupName, "ops", batch.Len())
			if err := batch.Commit(ctx); err != nil {
				return result, fmt.Errorf("commit message batch for %s: %w", groupName, err)
			}
			batch = w.docs.NewBatch()
		}
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return result, fmt.Errorf("commit final message batch for %s: %w", groupName, err)
		}
	}

	w.logger.Info("save finished", "group", groupName,
		"saved", result.Saved, "skipped", result.Skipped, "media_failed", result.MediaFailed)
	return result, nil
}

func messageFields(msg models.ParsedMessage) map[string]any {
	mediaStatus := models.MediaStatusNotApplicable
	if msg.HasMedia {
		mediaStatus = models.MediaStatusPending
	}
	return map[string]any{
		"timestamp_utc":         msg.Timestamp.UTC().Format(time.RFC3339),
		"author":                msg.Author,
		"message_text":          msg.Text,
		"is_system_message":     msg.IsSystem,
		"has_media":             msg.HasMedia,
		"nlp_status":            models.NLPStatusPending,
		"media_analysis_status": mediaStatus,
	}
}
