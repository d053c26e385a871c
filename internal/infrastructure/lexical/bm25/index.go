package bm25

import (
	"math"
	"sort"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

type Option func(*Index)

func WithParameters(k1, b float64) Option {
	return func(idx *Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
		if b >= 0 && b <= 1 {
			idx.b = b
		}
	}
}

// Index is an in-memory Okapi BM25 index. It is immutable after New and safe
// for concurrent searches.
type Index struct {
	k1 float64
	b  float64

	ids        []string
	docLengths []float64
	avgDocLen  float64
	postings   map[string][]posting
	idf        map[string]float64
}

type posting struct {
	doc  int
	freq float64
}

func New(chunks []domain.Chunk, opts ...Option) *Index {
	idx := &Index{
		k1:         DefaultK1,
		b:          DefaultB,
		ids:        make([]string, len(chunks)),
		docLengths: make([]float64, len(chunks)),
		postings:   make(map[string][]posting),
		idf:        make(map[string]float64),
	}
	for _, opt := range opts {
		opt(idx)
	}

	var totalLen float64
	for doc, chunk := range chunks {
		idx.ids[doc] = chunk.ID
		tokens := Tokenize(chunk.Text)
		idx.docLengths[doc] = float64(len(tokens))
		totalLen += float64(len(tokens))

		termFreq := make(map[string]float64, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if _, seen := termFreq[token]; !seen {
				order = append(order, token)
			}
			termFreq[token]++
		}
		for _, term := range order {
			idx.postings[term] = append(idx.postings[term], posting{doc: doc, freq: termFreq[term]})
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLen = totalLen / float64(len(chunks))
	}

	n := float64(len(chunks))
	for term, list := range idx.postings {
		df := float64(len(list))
		idx.idf[term] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.ids)
}

// Search returns up to k chunks with a positive score. Equal scores keep
// corpus order, so results are fully deterministic.
func (idx *Index) Search(query string, k int) []domain.IndexHit {
	if k <= 0 || len(idx.ids) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range Tokenize(query) {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for _, p := range idx.postings[term] {
			scores[p.doc] += idf * idx.saturate(p.freq, idx.docLengths[p.doc])
		}
	}

	docs := make([]int, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if scores[docs[i]] != scores[docs[j]] {
			return scores[docs[i]] > scores[docs[j]]
		}
		return docs[i] < docs[j]
	})
	if len(docs) > k {
		docs = docs[:k]
	}

	out := make([]domain.IndexHit, len(docs))
	for i, doc := range docs {
		out[i] = domain.IndexHit{ChunkID: idx.ids[doc], Score: scores[doc]}
	}
	return out
}

func (idx *Index) saturate(tf, docLen float64) float64 {
	norm := 1.0
	if idx.avgDocLen > 0 {
		norm = 1 - idx.b + idx.b*docLen/idx.avgDocLen
	}
	weight := tf * (idx.k1 + 1) / (tf + idx.k1*norm)
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0
	}
	return weight
}
