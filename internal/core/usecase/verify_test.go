package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func labeled(contradiction, neutral, entailment float64) []domain.LabelScore {
	return []domain.LabelScore{
		{Label: "contradiction", Score: contradiction},
		{Label: "neutral", Score: neutral},
		{Label: "entailment", Score: entailment},
	}
}

func TestVerifyReadsEntailmentByLabel(t *testing.T) {
	// Label order differs from the default index on purpose.
	nli := &nliFake{logits: []domain.LabelScore{
		{Label: "ENTAILMENT", Score: 4},
		{Label: "neutral", Score: 0},
		{Label: "contradiction", Score: 0},
	}}
	v := NewVerifier(nli, DefaultVerifierConfig())

	got := v.Verify(context.Background(), "ctx", "answer")
	if got.Score == nil {
		t.Fatalf("expected score")
	}
	want := math.Exp(4) / (math.Exp(4) + 2)
	if math.Abs(*got.Score-want) > 1e-9 {
		t.Fatalf("expected %.6f, got %.6f", want, *got.Score)
	}
	if got.Status != domain.VerificationPassed {
		t.Fatalf("expected passed status, got %s", got.Status)
	}
	if nli.premise != "ctx" || nli.hypothesis != "answer" {
		t.Fatalf("expected context as premise and answer as hypothesis, got %q / %q", nli.premise, nli.hypothesis)
	}
}

func TestVerifyUsesIndexForUnlabeledLogits(t *testing.T) {
	nli := &nliFake{logits: []domain.LabelScore{{Score: 0}, {Score: 0}, {Score: 0}}}
	v := NewVerifier(nli, VerifierConfig{Threshold: 0.5, EntailmentIndex: -1})

	got := v.Verify(context.Background(), "ctx", "answer")
	if got.Score == nil || math.Abs(*got.Score-1.0/3) > 1e-9 {
		t.Fatalf("expected uniform probability, got %v", got.Score)
	}
	if got.Status != domain.VerificationFailed {
		t.Fatalf("expected failed status below threshold, got %s", got.Status)
	}
}

func TestVerifyEmptyInputScoresZero(t *testing.T) {
	nli := &nliFake{logits: labeled(0, 0, 10)}
	v := NewVerifier(nli, DefaultVerifierConfig())

	for _, tc := range [][2]string{{"", "answer"}, {"ctx", "  "}} {
		got := v.Verify(context.Background(), tc[0], tc[1])
		if got.Score == nil || *got.Score != 0 {
			t.Fatalf("expected zero score for %q/%q, got %v", tc[0], tc[1], got.Score)
		}
		if got.Status != domain.VerificationDegraded {
			t.Fatalf("expected degraded status, got %s", got.Status)
		}
	}
	if nli.premise != "" {
		t.Fatalf("classifier must not be called for empty input")
	}
}

func TestVerifyClassifierFailureYieldsNilScore(t *testing.T) {
	v := NewVerifier(&nliFake{err: errors.New("nli down")}, DefaultVerifierConfig())
	got := v.Verify(context.Background(), "ctx", "answer")
	if got.Score != nil {
		t.Fatalf("expected nil score, got %v", *got.Score)
	}
	if got.Status != domain.VerificationUnavailable {
		t.Fatalf("expected unavailable status, got %s", got.Status)
	}
}

func TestVerifyMapsGenericLabelsByClassIndex(t *testing.T) {
	// Sorted by score, as an inference server returns them.
	nli := &nliFake{logits: []domain.LabelScore{
		{Label: "LABEL_2", Score: 5},
		{Label: "LABEL_0", Score: -3},
		{Label: "LABEL_1", Score: -3},
	}}
	cfg := DefaultVerifierConfig()
	cfg.EntailmentIndex = 2

	got := NewVerifier(nli, cfg).Verify(context.Background(), "ctx", "answer")
	if got.Score == nil || got.Status != domain.VerificationPassed {
		t.Fatalf("expected passing score from LABEL_2, got %+v", got)
	}
	if *got.Score < 0.99 {
		t.Fatalf("expected entailment probability near 1, got %f", *got.Score)
	}

	cfg.EntailmentIndex = 0
	got = NewVerifier(nli, cfg).Verify(context.Background(), "ctx", "answer")
	if got.Score == nil || got.Status != domain.VerificationFailed || *got.Score > 0.01 {
		t.Fatalf("expected failing score from LABEL_0, got %+v", got)
	}
}

func TestVerifyUnrelatedLabelsAreUnavailable(t *testing.T) {
	nli := &nliFake{logits: []domain.LabelScore{{Label: "positive", Score: 1}, {Label: "negative", Score: 2}}}
	got := NewVerifier(nli, DefaultVerifierConfig()).Verify(context.Background(), "ctx", "answer")
	if got.Status != domain.VerificationUnavailable || got.Score != nil {
		t.Fatalf("expected unavailable verification, got %+v", got)
	}
}

func TestEntailmentProbabilityStaysInUnitInterval(t *testing.T) {
	cases := [][]domain.LabelScore{
		labeled(-1000, -1000, 1000),
		labeled(1000, 0, -1000),
		labeled(0.3, -2.1, 0.7),
		{{Score: 50}, {Score: 50}, {Score: 50}},
	}
	for i, logits := range cases {
		p, err := entailmentProbability(logits, "entailment", 2)
		if err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
		if p < 0 || p > 1 {
			t.Fatalf("case %d: probability %f outside [0,1]", i, p)
		}
	}
}

func TestEntailmentProbabilityRejectsBadIndex(t *testing.T) {
	if _, err := entailmentProbability([]domain.LabelScore{{Score: 1}}, "entailment", 2); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := entailmentProbability(nil, "entailment", 2); err == nil {
		t.Fatalf("expected error for empty logits")
	}
}
