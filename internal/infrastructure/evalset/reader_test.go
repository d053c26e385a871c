package evalset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func TestReadAcceptsAlternativeKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.jsonl")
	content := `{"id":"q1","question":"What is Form I-90?","relevant_urls":["https://a","https://a","https://b"]}
{"qid":2,"question":"Reentry permit?","gold_urls":"https://c"}
{"id":"q3","question":"Fees?","relevant_ids":["chunk-9","https://d"]}

{"question":"No gold here"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	items, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if got := items[0].RelevantURLs; len(got) != 2 || got[0] != "https://a" || got[1] != "https://b" {
		t.Fatalf("unexpected gold for q1: %v", got)
	}
	if items[1].ID != "2" || len(items[1].RelevantURLs) != 1 || items[1].RelevantURLs[0] != "https://c" {
		t.Fatalf("unexpected q2: %+v", items[1])
	}
	if got := items[2].RelevantURLs; len(got) != 1 || got[0] != "https://d" {
		t.Fatalf("unexpected gold for q3: %v", got)
	}
	if items[3].ID != "line-5" || items[3].RelevantURLs != nil {
		t.Fatalf("unexpected unlabelled item: %+v", items[3])
	}
}

func TestReadRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(context.Background(), path); !domain.IsKind(err, domain.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}
