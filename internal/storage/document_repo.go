package storage

import (
	"context"
	"errors"
	"fmt"

	"notebookllm/internal/models"

	"github.com/jackc/pgx/v5"
)

const documentsSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
  document_id  UUID PRIMARY KEY,
  name         TEXT NOT NULL,
  kind         TEXT NOT NULL,
  size_bytes   BIGINT NOT NULL DEFAULT 0,
  status       TEXT NOT NULL,
  chunks       INT NOT NULL DEFAULT 0,
  pages        INT NOT NULL DEFAULT 0,
  content_hash TEXT,
  fail_reason  TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash);`

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, documentsSchemaSQL); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (r *DocumentRepo) CreateDocument(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, name, kind, size_bytes, status, chunks, pages, content_hash, fail_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''), NULLIF($9,''))`,
		d.ID, d.Name, string(d.Kind), d.Size, string(d.Status), d.Chunks, d.Pages, d.ContentHash, d.FailReason,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET status=$2, chunks=$3, pages=GREATEST(pages, $4), fail_reason=NULLIF($5,''), updated_at=NOW()
WHERE document_id=$1`, u.DocumentID, string(u.Status), u.Chunks, u.Pages, u.FailReason)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update document status %s: %w", u.DocumentID, ErrNotFound)
	}
	return nil
}

const documentColumns = `document_id::text, name, kind, size_bytes, status, chunks, pages,
       COALESCE(content_hash,''), COALESCE(fail_reason,''), created_at, updated_at`

func scanDocument(row pgx.Row) (models.Document, error) {
	var d models.Document
	var kind, status string
	err := row.Scan(&d.ID, &d.Name, &kind, &d.Size, &status, &d.Chunks, &d.Pages, &d.ContentHash, &d.FailReason, &d.CreatedAt, &d.UpdatedAt)
	d.Kind = models.DocumentKind(kind)
	d.Status = models.DocumentStatus(status)
	return d, err
}

func (r *DocumentRepo) GetDocument(ctx context.Context, id string) (models.Document, error) {
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE document_id::text=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("get document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
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

func (r *DocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE document_id::text=$1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *DocumentRepo) FindIndexedByHash(ctx context.Context, hash string) (models.Document, bool, error) {
	if hash == "" {
		return models.Document{}, false, nil
	}
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE content_hash=$1 AND status='indexed'
ORDER BY created_at ASC
LIMIT 1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, false, nil
	}
	if err != nil {
		return models.Document{}, false, fmt.Errorf("find document by hash: %w", err)
	}
	return d, true, nil
}
