package identity

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGroupIDStable(t *testing.T) {
	a := GroupID("Família")
	b := GroupID("Família")
	if a != b {
		t.Fatalf("expected identical ids, got %s and %s", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected 40 hex chars, got %d", len(a))
	}
	if GroupID("Trabalho") == a {
		t.Fatalf("distinct names must not share an id")
	}
}

func TestMessageIDDeterministic(t *testing.T) {
	ts := time.Date(2023, 2, 1, 9, 15, 0, 0, time.UTC)
	a := MessageID(ts, "Alice", "Hello world")
	b := MessageID(ts, "Alice", "Hello world")
	if a != b {
		t.Fatalf("expected identical ids, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if MessageID(ts, "Bob", "Hello world") == a {
		t.Fatalf("author must change the id")
	}
	if MessageID(ts.Add(time.Minute), "Alice", "Hello world") == a {
		t.Fatalf("timestamp must change the id")
	}
}

func TestMessageIDTruncationCollision(t *testing.T) {
	ts := time.Date(2023, 2, 1, 9, 15, 0, 0, time.UTC)
	prefix := ""
	for i := 0; i < 50; i++ {
		prefix += "x"
	}

	a := MessageID(ts, "Alice", prefix+" tail one")
	b := MessageID(ts, "Alice", prefix+" a different tail")
	if a != b {
		t.Fatalf("texts sharing the first 50 characters must collide")
	}

	c := MessageID(ts, "Alice", prefix[:49]+"y tail")
	if c == a {
		t.Fatalf("texts differing inside the prefix must not collide")
	}
}

func TestMessageIDRuneTruncation(t *testing.T) {
	ts := time.Date(2023, 2, 1, 9, 15, 0, 0, time.UTC)
	// 50 multi-byte runes; byte truncation would split a code point.
	text := ""
	for i := 0; i < 50; i++ {
		text += "é"
	}

	a := MessageID(ts, "Alice", text+"suffix")
	b := MessageID(ts, "Alice", text+"other")
	if a != b {
		t.Fatalf("rune-based truncation must ignore the tail beyond 50 code points")
	}
}

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := FileSHA256(path)
	if err != nil {
		t.Fatalf("hash file: %v", err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if _, err := FileSHA256(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
