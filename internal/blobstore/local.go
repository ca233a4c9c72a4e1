package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs in a local directory tree, one subtree per bucket.
// Writes go through a temp file plus rename so a key is either absent or
// holds complete content.
type Local struct {
	root string
}

// NewLocal creates a local blob backend rooted at root.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Exists reports whether an object is already stored under bucket/key.
func (l *Local) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("blob backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := l.objectPath(bucket, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PutFile copies localPath into bucket/key. An object already present under
// the key is left untouched.
func (l *Local) PutFile(ctx context.Context, bucket, key, localPath, contentType string) error {
	if l == nil {
		return fmt.Errorf("blob backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		// Lost a race to a concurrent writer of identical content.
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		cleanup()
		return err
	}
	return nil
}

// URI returns the stable location of bucket/key in this backend.
func (l *Local) URI(bucket, key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(l.root, bucket, filepath.FromSlash(key)))
}

func (l *Local) objectPath(bucket, key string) (string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(l.root, bucket, clean), nil
}
