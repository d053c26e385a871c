package bootstrap

import (
	"context"
	"log/slog"

	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/infrastructure/corpus"
	"github.com/kirillkom/groundedqa/internal/infrastructure/repository/postgres"
)

// ImportCorpus copies a JSONL corpus into the Postgres chunk table. Records
// are validated with the same rules the query path applies at load time, so a
// corpus that imports cleanly also loads cleanly.
func ImportCorpus(ctx context.Context, cfg config.Config, path string) (int, error) {
	records, err := corpus.NewJSONLSource(path).ReadRecords(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := corpus.NewStore(records); err != nil {
		return 0, err
	}

	res := &resources{cfg: cfg}
	defer res.Close()

	db, err := res.postgres()
	if err != nil {
		return 0, err
	}
	repo := postgres.NewChunkRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := repo.ImportRecords(ctx, records); err != nil {
		return 0, err
	}
	slog.Info("corpus_imported", "path", path, "chunks", len(records))
	return len(records), nil
}
