package chi

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	"github.com/kailas-cloud/docqa/internal/usecase/retrieval"
)

// Ingester manages uploaded documents.
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (ingest.Result, error)
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]domdoc.Document, error)
	Status(ctx context.Context) (ingest.Status, error)
}

// Retriever answers search queries.
type Retriever interface {
	Search(ctx context.Context, q retrieval.Query) (retrieval.Result, error)
}

// Analyzer runs financial analyses.
type Analyzer interface {
	Stream(ctx context.Context, req analysis.Request) <-chan domain.Event
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
	Templates() []analysis.Template
}

// TaskTracker exposes task cancellation and status.
type TaskTracker interface {
	Cancel(id string) bool
	Status(id string) domain.Task
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
