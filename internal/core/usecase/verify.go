package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

type VerifierConfig struct {
	Threshold float64
	// EntailmentLabel selects the class when the classifier reports labels.
	EntailmentLabel string
	// EntailmentIndex is the entailment class of the model. It selects the
	// logit for unlabeled output and matches LABEL_<n> names; negative values
	// count from the end of unlabeled output.
	EntailmentIndex int
}

func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		Threshold:       0.8,
		EntailmentLabel: "entailment",
		EntailmentIndex: 1,
	}
}

// Verifier scores whether an answer is entailed by its grounding context.
type Verifier struct {
	nli ports.NLIClassifier
	cfg VerifierConfig
}

func NewVerifier(nli ports.NLIClassifier, cfg VerifierConfig) *Verifier {
	if strings.TrimSpace(cfg.EntailmentLabel) == "" {
		cfg.EntailmentLabel = DefaultVerifierConfig().EntailmentLabel
	}
	return &Verifier{nli: nli, cfg: cfg}
}

// Verify never fails. Empty input yields a zero score; a classifier that
// cannot run yields a nil score.
func (v *Verifier) Verify(ctx context.Context, contextText, answer string) domain.Verification {
	if strings.TrimSpace(contextText) == "" || strings.TrimSpace(answer) == "" {
		zero := 0.0
		return domain.Verification{Score: &zero, Status: domain.VerificationDegraded}
	}
	if v == nil || v.nli == nil {
		return domain.Verification{Status: domain.VerificationUnavailable}
	}

	logits, err := v.nli.Classify(ctx, contextText, answer)
	if err != nil {
		slog.Warn("verification_unavailable", "error", err)
		return domain.Verification{Status: domain.VerificationUnavailable}
	}

	probability, err := entailmentProbability(logits, v.cfg.EntailmentLabel, v.cfg.EntailmentIndex)
	if err != nil {
		slog.Warn("verification_unavailable", "error", err)
		return domain.Verification{Status: domain.VerificationUnavailable}
	}

	status := domain.VerificationFailed
	if probability >= v.cfg.Threshold {
		status = domain.VerificationPassed
	}
	return domain.Verification{Score: &probability, Status: status}
}

func entailmentProbability(logits []domain.LabelScore, label string, index int) (float64, error) {
	if len(logits) == 0 {
		return 0, errors.New("classifier returned no logits")
	}

	values := make([]float64, len(logits))
	labeled := false
	for i, logit := range logits {
		values[i] = logit.Score
		if logit.Label != "" {
			labeled = true
		}
	}

	target := -1
	if labeled {
		target = labelTarget(logits, label, index)
		if target < 0 {
			return 0, fmt.Errorf("classifier labels do not include %q or LABEL_%d", label, index)
		}
	} else {
		target = index
		if target < 0 {
			target += len(values)
		}
		if target < 0 || target >= len(values) {
			return 0, fmt.Errorf("entailment index %d out of range for %d logits", index, len(values))
		}
	}

	probs := softmax(values)
	p := probs[target]
	if math.IsNaN(p) {
		return 0, errors.New("classifier returned non-finite logits")
	}
	return math.Min(1, math.Max(0, p)), nil
}

// labelTarget finds the entailment entry among labeled logits. Labeled output
// may arrive sorted by score, so position is never used; a model without an
// id2label mapping reports LABEL_<n>, where n is the class index.
func labelTarget(logits []domain.LabelScore, label string, index int) int {
	generic := -1
	for i, logit := range logits {
		name := strings.TrimSpace(logit.Label)
		if strings.EqualFold(name, label) {
			return i
		}
		if class, ok := genericLabelIndex(name); ok && class == index {
			generic = i
		}
	}
	return generic
}

func genericLabelIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.ToUpper(name), "LABEL_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
