package domain

// ChunkMetadata is the fixed set of optional source attributes of a chunk.
type ChunkMetadata struct {
	URL    string `json:"url,omitempty"`
	Agency string `json:"agency,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Chunk is an immutable unit of corpus text with a stable id.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// CorpusRecord is a raw record as read from a corpus source, before
// validation. Position is the 1-based record number within the source.
type CorpusRecord struct {
	ID       string
	Text     string
	URL      string
	Agency   string
	Title    string
	Position int
}
