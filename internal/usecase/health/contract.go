package health

import "context"

// CachePinger checks result cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks LLM provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusReader reports how much content is indexed.
type CorpusReader interface {
	Count(ctx context.Context) (int, error)
}
