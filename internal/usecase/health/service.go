package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing; analyses fall back to local reports.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled indicates an unconfigured component.
	CheckDisabled CheckResult = "disabled"
)

const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status    Status
	Checks    map[string]CheckResult
	Documents int
}

// Service coordinates health checks.
type Service struct {
	cache  CachePinger
	llm    LLMChecker
	corpus CorpusReader
}

// New creates a Service. cache and llm can be nil, reported as disabled.
func New(cache CachePinger, llm LLMChecker, corpus CorpusReader) *Service {
	return &Service{cache: cache, llm: llm, corpus: corpus}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	checks := map[string]CheckResult{
		"cache": CheckDisabled,
		"llm":   CheckDisabled,
	}

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}
	if s.llm != nil {
		checks["llm"] = result(s.llm.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	r := Report{Status: status, Checks: checks}
	if s.corpus != nil {
		if n, err := s.corpus.Count(ctx); err == nil {
			r.Documents = n
		}
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
