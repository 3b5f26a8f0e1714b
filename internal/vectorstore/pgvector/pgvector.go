// Package pgvector stores collections in PostgreSQL using the pgvector
// extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"notebookllm/internal/models"
	"notebookllm/internal/util"
	"notebookllm/internal/vectorstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Queryer is satisfied by *pgxpool.Pool and pgx.Tx.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Storage struct {
	q Queryer
}

func NewStorage(q Queryer) *Storage {
	return &Storage{q: q}
}

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS vector_collections (
  name       TEXT PRIMARY KEY,
  dimension  INT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS vector_points (
  point_id     UUID PRIMARY KEY,
  collection   TEXT NOT NULL REFERENCES vector_collections(name) ON DELETE CASCADE,
  document_id  TEXT NOT NULL,
  chunk_index  INT NOT NULL,
  start_offset INT NOT NULL,
  end_offset   INT NOT NULL,
  text         TEXT NOT NULL,
  metadata     JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding    vector NOT NULL
);
CREATE INDEX IF NOT EXISTS vector_points_document_idx ON vector_points (collection, document_id);`

// EnsureSchema creates the extension and tables when absent.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure pgvector schema: %w", classify(err))
	}
	return nil
}

func (s *Storage) CreateCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	_, err := s.q.Exec(ctx, `
INSERT INTO vector_collections (name, dimension)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING`, collection, dimension)
	if err != nil {
		return fmt.Errorf("create collection: %w", classify(err))
	}
	return nil
}

func (s *Storage) dimension(ctx context.Context, collection string) (int, error) {
	var dim int
	err := s.q.QueryRow(ctx, `SELECT dimension FROM vector_collections WHERE name=$1`, collection).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("pgvector collection %q: %w", collection, vectorstore.ErrCollectionNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup collection: %w", classify(err))
	}
	return dim, nil
}

func (s *Storage) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.dimension(ctx, collection)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return err
	}
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert points: %w", classify(err))
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("vector dimension mismatch: got %d want %d", len(p.Vector), dim)
		}
		meta, err := json.Marshal(p.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO vector_points (point_id, collection, document_id, chunk_index, start_offset, end_offset, text, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::vector)
ON CONFLICT (point_id)
DO UPDATE SET
  text = EXCLUDED.text,
  metadata = EXCLUDED.metadata,
  embedding = EXCLUDED.embedding`,
			p.ID, collection, p.Chunk.DocumentID, p.Chunk.Index, p.Chunk.Start, p.Chunk.End,
			util.SanitizeText(p.Chunk.Text), string(meta), pgvector.NewVector(p.Vector),
		)
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", p.ID, classify(err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit points tx: %w", classify(err))
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = 3
	}
	if _, err := s.dimension(ctx, collection); err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `
SELECT document_id, chunk_index, start_offset, end_offset, text, metadata,
       1 - (embedding <=> $2::vector) AS score
FROM vector_points
WHERE collection = $1
ORDER BY embedding <=> $2::vector
LIMIT $3`, collection, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", classify(err))
	}
	defer rows.Close()

	out := make([]vectorstore.Match, 0, k)
	for rows.Next() {
		var (
			c    models.Chunk
			meta []byte
			m    vectorstore.Match
		)
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Start, &c.End, &c.Text, &meta, &m.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &c.Metadata)
		}
		m.Chunk = c
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (s *Storage) DeleteDocument(ctx context.Context, collection, documentID string) (int, error) {
	if _, err := s.dimension(ctx, collection); err != nil {
		return 0, err
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM vector_points WHERE collection=$1 AND document_id=$2`, collection, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document points: %w", classify(err))
	}
	return int(tag.RowsAffected()), nil
}

// classify marks connection-level failures as ErrUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%v: %w", err, vectorstore.ErrUnavailable)
	}
	return err
}
