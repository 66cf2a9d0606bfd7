package ingest

import (
	"context"

	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/repository/vectorindex"
)

// Extractor turns an uploaded file into plain text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// DocumentStore persists ingested documents.
type DocumentStore interface {
	Add(ctx context.Context, doc domdoc.Document) error
	List(ctx context.Context) ([]domdoc.Document, error)
	Clear(ctx context.Context) error
}

// VectorSpace is the statistical vectorizer refitted on every ingestion.
type VectorSpace interface {
	Fit(corpus []string) error
	Transform(text string) []float32
	Fitted() bool
	Reset()
}

// Index receives chunk vectors.
type Index interface {
	Insert(vector []float32, ref vectorindex.Ref) error
	Reset()
	Len() int
	Dimension() int
}
