package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
  path TEXT PRIMARY KEY,
  collection TEXT NOT NULL,
  fields TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// SQLite is a document store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// Open opens the SQLite database at path and bootstraps the schema.
func Open(dbPath string) (*SQLite, error) {
	dsn, err := sqliteDSN(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert writes fields at path, optionally merging with existing fields.
func (s *SQLite) Upsert(ctx context.Context, docPath string, fields map[string]any, merge bool) error {
	docPath, err := normalizeDocPath(docPath)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if merge {
		var existing string
		row := tx.QueryRowContext(ctx, "SELECT fields FROM documents WHERE path = ?", docPath)
		switch scanErr := row.Scan(&existing); {
		case scanErr == nil:
			merged := make(map[string]any)
			if err = json.Unmarshal([]byte(existing), &merged); err != nil {
				return fmt.Errorf("decode document %s: %w", docPath, err)
			}
			for k, v := range fields {
				merged[k] = v
			}
			fields = merged
		case errors.Is(scanErr, sql.ErrNoRows):
		default:
			err = scanErr
			return err
		}
	}

	if err = upsertDoc(ctx, tx, docPath, fields); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the fields of the document at path.
func (s *SQLite) Get(ctx context.Context, docPath string) (map[string]any, error) {
	docPath, err := normalizeDocPath(docPath)
	if err != nil {
		return nil, err
	}

	var raw string
	row := s.db.QueryRowContext(ctx, "SELECT fields FROM documents WHERE path = ?", docPath)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docPath)
		}
		return nil, err
	}

	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", docPath, err)
	}
	return fields, nil
}

// ListIDs returns the IDs of all documents directly in collectionPath.
func (s *SQLite) ListIDs(ctx context.Context, collectionPath string) ([]string, error) {
	collectionPath = strings.Trim(collectionPath, "/")
	rows, err := s.db.QueryContext(ctx,
		"SELECT path FROM documents WHERE collection = ? ORDER BY path", collectionPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		ids = append(ids, path.Base(p))
	}
	return ids, rows.Err()
}

// List returns documents in collectionPath ordered by path.
func (s *SQLite) List(ctx context.Context, collectionPath string, limit, offset int) ([]Document, error) {
	collectionPath = strings.Trim(collectionPath, "/")
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, fields FROM documents WHERE collection = ? ORDER BY path LIMIT ? OFFSET ?",
		collectionPath, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, err
		}
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", p, err)
		}
		docs = append(docs, Document{ID: path.Base(p), Path: p, Fields: fields})
	}
	return docs, rows.Err()
}

// NewBatch returns an empty write batch bound to this store.
func (s *SQLite) NewBatch() Batch {
	return &sqliteBatch{db: s.db}
}

type batchOp struct {
	path   string
	fields map[string]any
}

type sqliteBatch struct {
	db  *sql.DB
	ops []batchOp
}

func (b *sqliteBatch) Set(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{path: path, fields: fields})
}

func (b *sqliteBatch) Len() int {
	return len(b.ops)
}

// Commit writes all staged documents in one transaction. The batch must not
// be reused after a successful commit.
func (b *sqliteBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf("%w: %d ops, max %d", ErrBatchTooLarge, len(b.ops), MaxBatchOps)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range b.ops {
		var docPath string
		docPath, err = normalizeDocPath(op.path)
		if err != nil {
			return err
		}
		if err = upsertDoc(ctx, tx, docPath, op.fields); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	b.ops = nil
	return nil
}

func upsertDoc(ctx context.Context, tx *sql.Tx, docPath string, fields map[string]any) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", docPath, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, collection, fields, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
		  fields = excluded.fields,
		  updated_at = excluded.updated_at
	`, docPath, path.Dir(docPath), string(encoded), time.Now().UTC().Format(time.RFC3339))
	return err
}

// normalizeDocPath validates a document path: non-empty segments alternating
// collection/document, so an even segment count.
func normalizeDocPath(docPath string) (string, error) {
	docPath = strings.Trim(strings.TrimSpace(docPath), "/")
	if docPath == "" {
		return "", fmt.Errorf("document path is required")
	}
	segments := strings.Split(docPath, "/")
	if len(segments)%2 != 0 {
		return "", fmt.Errorf("invalid document path %q: odd segment count", docPath)
	}
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return "", fmt.Errorf("invalid document path %q: empty segment", docPath)
		}
	}
	return docPath, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Tune connection pool for local usage.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(dbPath string) (string, error) {
	if dbPath == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: dbPath}
	return u.String(), nil
}
