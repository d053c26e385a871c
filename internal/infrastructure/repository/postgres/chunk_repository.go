package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const chunkSchemaLockKey int64 = 2026031701

// ChunkRepository keeps the corpus in a corpus_chunks table. It serves as a
// ports.CorpusSource for processes that read the corpus from Postgres instead
// of a JSONL file.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chunkSchemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_chunks (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	agency TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_corpus_chunks_position ON corpus_chunks(position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// ReadRecords returns chunks in their stored position order.
func (r *ChunkRepository) ReadRecords(ctx context.Context) ([]domain.CorpusRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, position, text, url, agency, title
FROM corpus_chunks
ORDER BY position ASC, id ASC
`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "query corpus chunks", err)
	}
	defer rows.Close()

	records := make([]domain.CorpusRecord, 0)
	for rows.Next() {
		var rec domain.CorpusRecord
		if err := rows.Scan(&rec.ID, &rec.Position, &rec.Text, &rec.URL, &rec.Agency, &rec.Title); err != nil {
			return nil, domain.WrapError(domain.ErrLoad, "scan corpus chunk", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "iterate corpus chunks", err)
	}
	return records, nil
}

// ImportRecords replaces rows with matching ids in a single transaction.
func (r *ChunkRepository) ImportRecords(ctx context.Context, records []domain.CorpusRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO corpus_chunks (id, position, text, url, agency, title)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
	position = EXCLUDED.position,
	text = EXCLUDED.text,
	url = EXCLUDED.url,
	agency = EXCLUDED.agency,
	title = EXCLUDED.title
`, rec.ID, rec.Position, rec.Text, rec.URL, rec.Agency, rec.Title); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}
