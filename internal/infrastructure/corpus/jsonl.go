package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// JSONLSource reads one chunk record per line. The id is taken from "id" and
// falls back to "chunk_id"; metadata may be nested under "metadata" or sit at
// the top level.
type JSONLSource struct {
	path string
}

func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

type jsonlMetadata struct {
	URL    string `json:"url"`
	Agency string `json:"agency"`
	Title  string `json:"title"`
}

type jsonlRecord struct {
	ID       any            `json:"id"`
	ChunkID  any            `json:"chunk_id"`
	Text     string         `json:"text"`
	Metadata *jsonlMetadata `json:"metadata"`
	jsonlMetadata
}

func (s *JSONLSource) ReadRecords(ctx context.Context) ([]domain.CorpusRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "open corpus", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []domain.CorpusRecord
	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, domain.WrapError(domain.ErrLoad, "parse corpus", fmt.Errorf("line %d: %w", line, err))
		}

		meta := rec.jsonlMetadata
		if rec.Metadata != nil {
			meta = mergeMetadata(*rec.Metadata, meta)
		}
		id := stringID(rec.ID)
		if id == "" {
			id = stringID(rec.ChunkID)
		}
		records = append(records, domain.CorpusRecord{
			ID:       id,
			Text:     rec.Text,
			URL:      meta.URL,
			Agency:   meta.Agency,
			Title:    meta.Title,
			Position: line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrLoad, "scan corpus", err)
	}
	return records, nil
}

func mergeMetadata(primary, fallback jsonlMetadata) jsonlMetadata {
	if primary.URL == "" {
		primary.URL = fallback.URL
	}
	if primary.Agency == "" {
		primary.Agency = fallback.Agency
	}
	if primary.Title == "" {
		primary.Title = fallback.Title
	}
	return primary
}

// stringID accepts string and numeric ids.
func stringID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", id))
	}
}
