package docstore

import "errors"

var (
	// ErrNotFound reports a missing document.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable reports an unreachable store backend.
	ErrUnavailable = errors.New("document store unavailable")

	// ErrBatchTooLarge reports a batch exceeding MaxBatchOps.
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")
)
