// Package vectorindex is an exact (flat) nearest-neighbour index over chunk vectors.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Ref identifies the chunk a vector was computed from.
type Ref struct {
	DocumentID string
	Filename   string
	Position   int
	Text       string
}

// Hit is a search result. Distance is the squared euclidean distance.
type Hit struct {
	Ref      Ref
	Distance float32
}

type entry struct {
	ref    Ref
	vector []float32
}

// Index stores vectors of one fixed dimension and answers k-nearest queries by full scan.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Insert appends a vector. The vector is copied.
func (ix *Index) Insert(vector []float32, ref Ref) error {
	if len(vector) != ix.dimension {
		return fmt.Errorf("insert %d-dim vector into %d-dim index: %w",
			len(vector), ix.dimension, domain.ErrVectorDimMismatch)
	}
	v := make([]float32, len(vector))
	copy(v, vector)

	ix.mu.Lock()
	ix.entries = append(ix.entries, entry{ref: ref, vector: v})
	ix.mu.Unlock()
	return nil
}

// Search returns up to k entries closest to query, nearest first.
// Equal distances keep insertion order. An empty index or k <= 0 yields no hits.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("search %d-dim query in %d-dim index: %w",
			len(query), ix.dimension, domain.ErrVectorDimMismatch)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(ix.entries))
	for i, e := range ix.entries {
		hits[i] = Hit{Ref: e.ref, Distance: squaredL2(query, e.vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset removes every entry.
func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.entries = nil
	ix.mu.Unlock()
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the vector dimension.
func (ix *Index) Dimension() int { return ix.dimension }

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
