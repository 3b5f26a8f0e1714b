package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"notebookllm/internal/models"

	_ "modernc.org/sqlite"
)

// sqliteTime is fixed width so that text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
  document_id  TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  kind         TEXT NOT NULL,
  size_bytes   INTEGER NOT NULL DEFAULT 0,
  status       TEXT NOT NULL,
  chunks       INTEGER NOT NULL DEFAULT 0,
  pages        INTEGER NOT NULL DEFAULT 0,
  content_hash TEXT NOT NULL DEFAULT '',
  fail_reason  TEXT NOT NULL DEFAULT '',
  created_at   TEXT NOT NULL,
  updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash);`

// SQLiteCatalog keeps the document catalog in a local SQLite file, for
// single-machine setups without Postgres.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	if _, err := db.Exec(sqliteSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite catalog schema: %w", err)
	}
	return &SQLiteCatalog{db: db, path: path, now: time.Now}, nil
}

func (c *SQLiteCatalog) Path() string { return c.path }

func (c *SQLiteCatalog) Close() error { return c.db.Close() }

func (c *SQLiteCatalog) CreateDocument(ctx context.Context, d models.Document) error {
	now := c.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO documents (document_id, name, kind, size_bytes, status, chunks, pages, content_hash, fail_reason, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, string(d.Kind), d.Size, string(d.Status), d.Chunks, d.Pages, d.ContentHash, d.FailReason,
		d.CreatedAt.UTC().Format(sqliteTime), now.Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	res, err := c.db.ExecContext(ctx, `
UPDATE documents
SET status=?, chunks=?, pages=MAX(pages, ?), fail_reason=?, updated_at=?
WHERE document_id=?`, string(u.Status), u.Chunks, u.Pages, u.FailReason, c.now().UTC().Format(sqliteTime), u.DocumentID)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update document status %s: %w", u.DocumentID, ErrNotFound)
	}
	return nil
}

const sqliteDocumentColumns = `document_id, name, kind, size_bytes, status, chunks, pages, content_hash, fail_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDocument(row rowScanner) (models.Document, error) {
	var (
		d                models.Document
		kind, status     string
		created, updated string
	)
	if err := row.Scan(&d.ID, &d.Name, &kind, &d.Size, &status, &d.Chunks, &d.Pages, &d.ContentHash, &d.FailReason, &created, &updated); err != nil {
		return models.Document{}, err
	}
	d.Kind = models.DocumentKind(kind)
	d.Status = models.DocumentStatus(status)
	var err error
	if d.CreatedAt, err = time.Parse(sqliteTime, created); err != nil {
		return models.Document{}, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(sqliteTime, updated); err != nil {
		return models.Document{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return d, nil
}

func (c *SQLiteCatalog) GetDocument(ctx context.Context, id string) (models.Document, error) {
	d, err := scanSQLiteDocument(c.db.QueryRowContext(ctx, `SELECT `+sqliteDocumentColumns+` FROM documents WHERE document_id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, fmt.Errorf("get document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (c *SQLiteCatalog) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+sqliteDocumentColumns+` FROM documents ORDER BY created_at DESC, document_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (c *SQLiteCatalog) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id=?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (c *SQLiteCatalog) FindIndexedByHash(ctx context.Context, hash string) (models.Document, bool, error) {
	if hash == "" {
		return models.Document{}, false, nil
	}
	d, err := scanSQLiteDocument(c.db.QueryRowContext(ctx, `
SELECT `+sqliteDocumentColumns+`
FROM documents
WHERE content_hash=? AND status='indexed'
ORDER BY created_at ASC
LIMIT 1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, false, nil
	}
	if err != nil {
		return models.Document{}, false, fmt.Errorf("find document by hash: %w", err)
	}
	return d, true, nil
}
