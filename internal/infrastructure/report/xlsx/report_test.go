package xlsx

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func TestWriteProducesSummaryAndScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.xlsx")
	report := &domain.EvalReport{
		K: 5,
		Summaries: []domain.RetrieverSummary{
			{Retriever: "bm25", K: 5, Questions: 2, Recall: 0.5, MRR: 0.25, NDCG: 0.4},
			{Retriever: "hybrid", K: 5, Questions: 2, Recall: 1, MRR: 1, NDCG: 1},
		},
		Scores: []domain.RetrieverScore{
			{ItemID: "q1", Retriever: "bm25", RetrievedURLs: []string{"https://a", "https://b"}, Recall: 1, MRR: 1, NDCG: 1},
		},
	}

	if err := Write(path, report); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows(summary) error = %v", err)
	}
	if len(rows) != 3 || rows[0][2] != "recall@5" || rows[2][0] != "hybrid" {
		t.Fatalf("unexpected summary rows: %v", rows)
	}

	scores, err := f.GetRows(scoresSheet)
	if err != nil {
		t.Fatalf("GetRows(scores) error = %v", err)
	}
	if len(scores) != 2 || scores[1][0] != "q1" || scores[1][5] != "https://a\nhttps://b" {
		t.Fatalf("unexpected score rows: %v", scores)
	}
}
