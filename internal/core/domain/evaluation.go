package domain

// EvalItem is one labelled question of a retrieval evaluation set.
type EvalItem struct {
	ID           string
	Question     string
	RelevantURLs []string
}

// RetrieverScore is the per-question outcome for one retriever.
type RetrieverScore struct {
	ItemID        string
	Retriever     string
	RetrievedURLs []string
	Recall        float64
	MRR           float64
	NDCG          float64
}

// RetrieverSummary averages RetrieverScore over all scored questions.
type RetrieverSummary struct {
	Retriever string
	K         int
	Questions int
	Recall    float64
	MRR       float64
	NDCG      float64
}

type EvalReport struct {
	K         int
	Summaries []RetrieverSummary
	Scores    []RetrieverScore
}
