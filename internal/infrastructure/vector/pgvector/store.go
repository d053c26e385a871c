package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const schemaLockKey int64 = 2026031702

// Store keeps chunk embeddings in a Postgres table with a pgvector column and
// searches by inner product.
type Store struct {
	db *sql.DB

	ensureMu  sync.Mutex
	ensuredAt int
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context, dimension int) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.ensuredAt == dimension {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunk_embeddings (
	chunk_id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL
);
`, dimension)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	s.ensuredAt = dimension
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.EnsureSchema(ctx, len(vectors[0])); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES ($1, $2)
ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding
`, chunk.ID, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("upsert embedding %q: %w", chunk.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.IndexHit, error) {
	// <#> is the negated inner product.
	rows, err := s.db.QueryContext(ctx, `
SELECT chunk_id, -(embedding <#> $1) AS score
FROM chunk_embeddings
ORDER BY embedding <#> $1, chunk_id
LIMIT $2
`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []domain.IndexHit
	for rows.Next() {
		var hit domain.IndexHit
		if err := rows.Scan(&hit.ChunkID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan embedding hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding hits: %w", err)
	}
	return out, nil
}

// Reset drops the embeddings table; the next Upsert recreates it with the new
// dimension.
func (s *Store) Reset(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS chunk_embeddings`); err != nil {
		return fmt.Errorf("drop embeddings table: %w", err)
	}
	s.ensuredAt = 0
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}
