package domain

import "time"

// IndexManifest records how a dense index was built so query-time embeddings
// can be checked against it.
type IndexManifest struct {
	EmbedModel string    `yaml:"embed_model"`
	Dimension  int       `yaml:"dimension"`
	ChunkCount int       `yaml:"chunk_count"`
	Backend    string    `yaml:"backend"`
	BuiltAt    time.Time `yaml:"built_at"`
}
