package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const FileName = "manifest.yaml"

func Write(path string, m domain.IndexManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func Read(path string) (domain.IndexManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.IndexManifest{}, domain.WrapError(domain.ErrRetrieval, "read manifest", fmt.Errorf("no index manifest at %s", path))
		}
		return domain.IndexManifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m domain.IndexManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return domain.IndexManifest{}, domain.WrapError(domain.ErrRetrieval, "parse manifest", err)
	}
	return m, nil
}

// Verify checks that the index was built with the query embedder's model and
// over a corpus no larger than the one loaded.
func Verify(m domain.IndexManifest, embedModel string, corpusSize int) error {
	if strings.TrimSpace(m.EmbedModel) == "" || m.Dimension <= 0 {
		return domain.WrapError(domain.ErrRetrieval, "verify manifest", errors.New("manifest is missing embed_model or dimension"))
	}
	if m.EmbedModel != embedModel {
		return domain.WrapError(domain.ErrRetrieval, "verify manifest", fmt.Errorf(
			"index was built with embedding model %q but queries use %q", m.EmbedModel, embedModel,
		))
	}
	if m.ChunkCount > corpusSize {
		return domain.WrapError(domain.ErrRetrieval, "verify manifest", fmt.Errorf(
			"index holds %d chunks but corpus has only %d", m.ChunkCount, corpusSize,
		))
	}
	return nil
}
