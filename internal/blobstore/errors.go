package blobstore

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing local source file.
var ErrNotFound = errors.New("local file not found")

// StorageError wraps a backend failure with the operation context.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
