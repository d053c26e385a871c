package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// Index is an exact inner-product index held in memory. With normalize set,
// vectors are L2-normalized on insert and on query, which makes the score a
// cosine similarity.
type Index struct {
	normalize bool
	dimension int
	ids       []string
	vectors   [][]float32
}

func New(normalize bool) *Index {
	return &Index{normalize: normalize}
}

func (idx *Index) Add(id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("flat index: empty vector for %q", id)
	}
	if idx.dimension == 0 {
		idx.dimension = len(vector)
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("flat index: vector for %q has dimension %d, index has %d", id, len(vector), idx.dimension)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	if idx.normalize {
		l2Normalize(stored)
	}
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, stored)
	return nil
}

func (idx *Index) Len() int       { return len(idx.ids) }
func (idx *Index) Dimension() int { return idx.dimension }

func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.IndexHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(idx.ids) == 0 {
		return nil, nil
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("flat index: query has dimension %d, index has %d", len(vector), idx.dimension)
	}

	query := vector
	if idx.normalize {
		query = make([]float32, len(vector))
		copy(query, vector)
		l2Normalize(query)
	}

	hits := make([]domain.IndexHit, len(idx.ids))
	for i, stored := range idx.vectors {
		hits[i] = domain.IndexHit{ChunkID: idx.ids[i], Score: dot(query, stored)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
