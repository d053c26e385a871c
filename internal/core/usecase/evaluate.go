package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const (
	RetrieverLexical = "bm25"
	RetrieverDense   = "dense"
	RetrieverHybrid  = "hybrid"
)

type EvalConfig struct {
	K int
	// FetchK is how many hits each retriever returns before url mapping. The
	// hybrid ranking fuses the full fetched lists.
	FetchK  int
	Workers int
	Fusion  FusionWeights
}

// RetrieverEvaluator measures url-level Recall@k, MRR@k and nDCG@k of the
// lexical, dense and fused retrievers against labelled questions.
type RetrieverEvaluator struct {
	lexical Retriever
	dense   Retriever
	cfg     EvalConfig
}

func NewRetrieverEvaluator(lexical, dense Retriever, cfg EvalConfig) *RetrieverEvaluator {
	if cfg.K <= 0 {
		cfg.K = 10
	}
	if cfg.FetchK < cfg.K {
		cfg.FetchK = cfg.K
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	cfg.Fusion = cfg.Fusion.orDefault()
	return &RetrieverEvaluator{lexical: lexical, dense: dense, cfg: cfg}
}

func (e *RetrieverEvaluator) Evaluate(ctx context.Context, items []domain.EvalItem) (*domain.EvalReport, error) {
	pool, err := ants.NewPool(e.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create eval pool: %w", err)
	}
	defer pool.Release()

	perItem := make([][]domain.RetrieverScore, len(items))
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, item := range items {
		if len(item.RelevantURLs) == 0 {
			continue
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			scores, err := e.evaluateItem(ctx, item)
			if err != nil {
				setErr(fmt.Errorf("evaluate item %s: %w", item.ID, err))
				return
			}
			perItem[i] = scores
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("submit eval item %s: %w", item.ID, submitErr))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	report := &domain.EvalReport{K: e.cfg.K}
	for _, scores := range perItem {
		report.Scores = append(report.Scores, scores...)
	}
	report.Summaries = summarize(report.Scores, e.cfg.K)
	return report, nil
}

func (e *RetrieverEvaluator) evaluateItem(ctx context.Context, item domain.EvalItem) ([]domain.RetrieverScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lexical, err := e.lexical.Retrieve(ctx, item.Question, e.cfg.FetchK)
	if err != nil {
		return nil, err
	}
	dense, err := e.dense.Retrieve(ctx, item.Question, e.cfg.FetchK)
	if err != nil {
		return nil, err
	}

	k := e.cfg.K
	rankings := []struct {
		name string
		urls []string
	}{
		{RetrieverLexical, hitURLs(headHits(lexical, k))},
		{RetrieverDense, hitURLs(headHits(dense, k))},
		{RetrieverHybrid, fuseURLs(lexical, dense, e.cfg.Fusion, k)},
	}

	out := make([]domain.RetrieverScore, 0, len(rankings))
	for _, ranking := range rankings {
		recall, mrr, ndcg := scoreRanking(ranking.urls, item.RelevantURLs, k)
		out = append(out, domain.RetrieverScore{
			ItemID:        item.ID,
			Retriever:     ranking.name,
			RetrievedURLs: ranking.urls,
			Recall:        recall,
			MRR:           mrr,
			NDCG:          ndcg,
		})
	}
	return out, nil
}

func headHits(hits []domain.ScoredHit, k int) []domain.ScoredHit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

// hitURLs keeps rank order and duplicates; hits without a url are dropped.
func hitURLs(hits []domain.ScoredHit) []string {
	urls := make([]string, 0, len(hits))
	for _, hit := range hits {
		if url := strings.TrimSpace(hit.Chunk.Metadata.URL); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// fuseURLs is document-level fusion: weighted scores are summed per url.
func fuseURLs(lexical, dense []domain.ScoredHit, weights FusionWeights, k int) []string {
	type urlScore struct {
		url   string
		score float64
	}
	var ranked []urlScore
	position := make(map[string]int)
	add := func(hits []domain.ScoredHit, weight float64) {
		for _, hit := range hits {
			url := strings.TrimSpace(hit.Chunk.Metadata.URL)
			if url == "" {
				continue
			}
			if idx, ok := position[url]; ok {
				ranked[idx].score += weight * hit.Score
				continue
			}
			position[url] = len(ranked)
			ranked = append(ranked, urlScore{url: url, score: weight * hit.Score})
		}
	}
	add(lexical, weights.Lexical)
	add(dense, weights.Dense)

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	urls := make([]string, len(ranked))
	for i, r := range ranked {
		urls[i] = r.url
	}
	return urls
}

// scoreRanking computes Recall@k over unique urls, MRR@k and binary nDCG@k.
func scoreRanking(retrieved, gold []string, k int) (recall, mrr, ndcg float64) {
	goldSet := make(map[string]struct{}, len(gold))
	for _, url := range gold {
		goldSet[url] = struct{}{}
	}
	if len(goldSet) == 0 || len(retrieved) == 0 {
		return 0, 0, 0
	}
	if len(retrieved) > k {
		retrieved = retrieved[:k]
	}

	found := make(map[string]struct{}, len(retrieved))
	var dcg float64
	for rank, url := range retrieved {
		if _, ok := goldSet[url]; !ok {
			continue
		}
		found[url] = struct{}{}
		if mrr == 0 {
			mrr = 1 / float64(rank+1)
		}
		dcg += 1 / math.Log2(float64(rank+2))
	}
	recall = float64(len(found)) / float64(len(goldSet))

	var idcg float64
	for rank := 1; rank <= min(len(goldSet), k); rank++ {
		idcg += 1 / math.Log2(float64(rank+1))
	}
	if idcg > 0 {
		ndcg = dcg / idcg
	}
	return recall, mrr, ndcg
}

func summarize(scores []domain.RetrieverScore, k int) []domain.RetrieverSummary {
	order := []string{RetrieverLexical, RetrieverDense, RetrieverHybrid}
	byName := make(map[string]*domain.RetrieverSummary, len(order))
	for _, name := range order {
		byName[name] = &domain.RetrieverSummary{Retriever: name, K: k}
	}
	for _, s := range scores {
		sum, ok := byName[s.Retriever]
		if !ok {
			continue
		}
		sum.Questions++
		sum.Recall += s.Recall
		sum.MRR += s.MRR
		sum.NDCG += s.NDCG
	}

	out := make([]domain.RetrieverSummary, 0, len(order))
	for _, name := range order {
		sum := byName[name]
		if sum.Questions > 0 {
			n := float64(sum.Questions)
			sum.Recall /= n
			sum.MRR /= n
			sum.NDCG /= n
		}
		out = append(out, *sum)
	}
	return out
}
