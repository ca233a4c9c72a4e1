package blobstore

import "context"

// Backend is the byte-storage abstraction the upload path writes through.
// Implementations must make repeated puts of identical content to the same
// key safe.
type Backend interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	PutFile(ctx context.Context, bucket, key, localPath, contentType string) error
	URI(bucket, key string) string
}
