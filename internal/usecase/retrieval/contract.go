package retrieval

import (
	"context"

	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/repository/vectorindex"
)

// Vectorizer maps text into the index vector space.
type Vectorizer interface {
	Transform(text string) []float32
}

// Index answers nearest-neighbour queries over chunk vectors.
type Index interface {
	Search(query []float32, k int) ([]vectorindex.Hit, error)
	Len() int
}

// DocumentReader lists ingested documents.
type DocumentReader interface {
	List(ctx context.Context) ([]domdoc.Document, error)
}
