// Package blobstore provides idempotent, content-addressed upload of media
// files into a byte-storage backend.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"waingest/internal/identity"
)

const defaultMediaType = "application/octet-stream"

// UploadResult describes one stored media artifact.
type UploadResult struct {
	URI       string
	SHA256    string
	MediaType string
}

// Store uploads local files into a Backend, skipping transfers for content
// already present under the resolved key.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Store on top of backend.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Upload pushes the file at localPath into bucket. An empty key derives the
// content-addressed default key <sha256><ext>; a caller-supplied key is used
// verbatim. The content hash is always computed, also when the transfer is
// skipped, so callers get complete metadata either way.
func (s *Store) Upload(ctx context.Context, localPath, bucket, key string) (UploadResult, error) {
	var zero UploadResult
	if s == nil || s.backend == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}

	hash, err := identity.FileSHA256(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, localPath)
		}
		return zero, err
	}

	ext := filepath.Ext(localPath)
	mediaType := mime.TypeByExtension(ext)
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	if key == "" {
		key = hash + ext
	}
	result := UploadResult{
		URI:       s.backend.URI(bucket, key),
		SHA256:    hash,
		MediaType: mediaType,
	}

	exists, err := s.backend.Exists(ctx, bucket, key)
	if err != nil {
		return zero, &StorageError{Op: "exists", Bucket: bucket, Key: key, Err: err}
	}
	if exists {
		s.logger.Debug("blob already stored, skipping transfer", "bucket", bucket, "key", key)
		return result, nil
	}

	if err := s.backend.PutFile(ctx, bucket, key, localPath, mediaType); err != nil {
		return zero, &StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	s.logger.Info("blob stored", "bucket", bucket, "key", key, "media_type", mediaType)
	return result, nil
}
