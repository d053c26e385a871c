package domain

// IndexHit is a raw hit from a lexical or dense index, before it is joined
// with the corpus.
type IndexHit struct {
	ChunkID string
	Score   float64
}

// ScoredHit is a hit produced by a single retriever. Scores are on that
// retriever's own scale.
type ScoredHit struct {
	ChunkID string  `json:"chunk_id"`
	Chunk   Chunk   `json:"chunk"`
	Score   float64 `json:"score"`
}

// FusedHit carries the weighted sum of per-retriever scores for a chunk.
type FusedHit struct {
	ChunkID       string  `json:"chunk_id"`
	Chunk         Chunk   `json:"chunk"`
	CombinedScore float64 `json:"combined_score"`
}

// RankedChunk is one entry of the final reranked context.
type RankedChunk struct {
	Chunk       Chunk   `json:"chunk"`
	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score"`
}

type Citation struct {
	Index int    `json:"id"`
	URL   string `json:"url"`
}

// LabelScore is one raw classifier output. Label is empty when the model
// service does not report label names.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type VerificationStatus string

const (
	VerificationPassed      VerificationStatus = "passed"
	VerificationFailed      VerificationStatus = "failed"
	VerificationDegraded    VerificationStatus = "degraded"
	VerificationUnavailable VerificationStatus = "unavailable"
)

// Verification is the entailment outcome. Score is nil only when the
// classifier could not run.
type Verification struct {
	Score  *float64
	Status VerificationStatus
}

func (v Verification) Passed() bool {
	return v.Status == VerificationPassed
}

type QueryResult struct {
	Question        string
	Answer          string
	GeneratedAnswer string
	Verification    Verification
	Citations       []Citation
	Context         []RankedChunk
}
