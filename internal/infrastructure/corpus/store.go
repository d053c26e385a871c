package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

// Store is the validated, immutable chunk collection of one process.
type Store struct {
	chunks []domain.Chunk
	byID   map[string]int
}

// Load reads every record from source and validates it. Any invalid record
// fails the whole load with domain.ErrLoad.
func Load(ctx context.Context, source ports.CorpusSource) (*Store, error) {
	records, err := source.ReadRecords(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrLoad) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrLoad, "read corpus", err)
	}
	return NewStore(records)
}

func NewStore(records []domain.CorpusRecord) (*Store, error) {
	s := &Store{
		chunks: make([]domain.Chunk, 0, len(records)),
		byID:   make(map[string]int, len(records)),
	}
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return nil, domain.WrapError(domain.ErrLoad, "validate corpus", fmt.Errorf("record %d has no id", rec.Position))
		}
		if strings.TrimSpace(rec.Text) == "" {
			return nil, domain.WrapError(domain.ErrLoad, "validate corpus", fmt.Errorf("record %d (%s) has empty text", rec.Position, id))
		}
		if prev, dup := s.byID[id]; dup {
			return nil, domain.WrapError(domain.ErrLoad, "validate corpus", fmt.Errorf(
				"record %d reuses id %q of chunk #%d", rec.Position, id, prev+1,
			))
		}

		s.byID[id] = len(s.chunks)
		s.chunks = append(s.chunks, domain.Chunk{
			ID:   id,
			Text: rec.Text,
			Metadata: domain.ChunkMetadata{
				URL:    strings.TrimSpace(rec.URL),
				Agency: strings.TrimSpace(rec.Agency),
				Title:  strings.TrimSpace(rec.Title),
			},
		})
	}
	return s, nil
}

func (s *Store) Chunk(id string) (domain.Chunk, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.Chunk{}, false
	}
	return s.chunks[idx], true
}

// Chunks returns a copy so callers cannot mutate the corpus.
func (s *Store) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *Store) Len() int {
	return len(s.chunks)
}
