// Package identity derives the deterministic content identities the
// ingestion pipeline depends on for idempotence: group IDs, message IDs and
// file content hashes. All functions are pure and stable across processes.
package identity

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// previewRunes bounds the text portion of the message identity. Two
	// messages that differ only beyond this prefix share an ID; that is the
	// dedup policy, not an accident.
	previewRunes = 50

	timestampLayout = "2006-01-02T15:04:05"
)

// GroupID returns the deterministic ID of a group derived from its display
// name.
func GroupID(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// MessageID returns the deterministic ID of a message derived from its
// timestamp, author and the first 50 characters of its text.
func MessageID(ts time.Time, author, text string) string {
	preview := []rune(text)
	if len(preview) > previewRunes {
		preview = preview[:previewRunes]
	}
	canonical := fmt.Sprintf("%s-%s-%s", ts.Format(timestampLayout), author, string(preview))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// FileSHA256 streams the file at path through SHA-256 and returns the hex
// digest. Memory stays bounded regardless of file size.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
