// Package analysis runs cancellable financial analyses over uploaded documents,
// streaming LLM output and degrading to locally generated reports.
package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Stream status messages.
const (
	MsgStarting  = "starting analysis"
	MsgPreparing = "preparing request"
	MsgComplete  = "analysis complete"
	MsgCancelled = "cancelled"
	fallbackNote = ", using fallback analysis"
)

// Result sources of a non-streaming analysis.
const (
	SourceLLM    = "llm"
	SourceCache  = "cache"
	SourceCanned = "canned"
)

// Request identifies an analysis job and the document text it covers.
type Request struct {
	TaskID       string
	AnalysisType string
	CompanyName  string
	Text         string
}

// Result is a finished non-streaming analysis.
type Result struct {
	Content string
	Source  string
}

// Options tunes prompt size and fallback pacing.
type Options struct {
	MaxContextLength int
	Pacing           time.Duration
}

// Engine runs analyses through an ordered strategy chain.
type Engine struct {
	llm        LLM
	tasks      TaskRegistry
	cache      ResultCache
	strategies []Strategy
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an engine with the chain [llm, content, canned].
// cache may be nil.
func New(llm LLM, tasks TaskRegistry, cache ResultCache, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		llm:    llm,
		tasks:  tasks,
		cache:  cache,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	e.strategies = []Strategy{
		llmStrategy{llm: llm},
		contentStrategy{pace: opts.Pacing, now: e.clock},
		cannedStrategy{now: e.clock},
	}
	return e
}

func (e *Engine) clock() time.Time { return e.now() }

// Templates lists the available analysis templates.
func (e *Engine) Templates() []Template { return Templates() }

// Stream starts req.TaskID and returns its events. The channel is closed
// after the terminal event, or early if ctx ends because the client left.
//
// After analysis_start exactly one of analysis_complete or error is sent.
// Cancellation through the task registry yields status("cancelled")
// followed by error("analysis cancelled").
func (e *Engine) Stream(ctx context.Context, req Request) <-chan domain.Event {
	out := make(chan domain.Event)
	taskCtx := e.tasks.Start(ctx, req.TaskID)
	go e.run(ctx, taskCtx, req, out)
	return out
}

func (e *Engine) run(clientCtx, taskCtx context.Context, req Request, out chan<- domain.Event) {
	defer close(out)
	defer e.tasks.Finish(req.TaskID)

	log := logger.FromContextOr(clientCtx, e.logger).With(
		zap.String("task_id", req.TaskID),
		zap.String("analysis_type", req.AnalysisType),
	)

	send := func(ev domain.Event) bool {
		select {
		case out <- ev:
			return true
		case <-clientCtx.Done():
			return false
		}
	}
	cancelled := func() bool {
		return e.tasks.IsCancelled(req.TaskID) || errors.Is(context.Cause(taskCtx), domain.ErrTaskCancelled)
	}
	finishCancelled := func(strategy string) {
		metrics.AnalysisStreamsTotal.WithLabelValues(strategy, "cancelled").Inc()
		log.Info("Analysis cancelled", zap.String("strategy", strategy))
		if send(domain.StatusEvent(MsgCancelled)) {
			send(domain.ErrorEvent(domain.ErrTaskCancelled.Error()))
		}
	}

	if !send(domain.StatusEvent(MsgStarting)) {
		return
	}
	if cancelled() {
		finishCancelled("none")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		send(domain.ErrorEvent(domain.ErrNoDocuments.Error()))
		return
	}

	in := Input{Request: req, Prompt: BuildPrompt(req, e.opts.MaxContextLength, true)}

	if !send(domain.StatusEvent(MsgPreparing)) || !send(domain.Event{Type: domain.EventAnalysisStart}) {
		return
	}

	for i, s := range e.strategies {
		emitted := false
		err := s.Produce(taskCtx, in, func(content string) error {
			if cancelled() {
				return domain.ErrTaskCancelled
			}
			select {
			case out <- domain.ChunkEvent(content):
				emitted = true
				return nil
			case <-taskCtx.Done():
				return context.Cause(taskCtx)
			}
		})

		switch {
		case cancelled():
			finishCancelled(s.Name())
			return
		case clientCtx.Err() != nil:
			log.Info("Client disconnected during analysis", zap.String("strategy", s.Name()))
			return
		case err == nil:
			metrics.AnalysisStreamsTotal.WithLabelValues(s.Name(), "completed").Inc()
			if send(domain.Event{Type: domain.EventAnalysisComplete}) {
				send(domain.StatusEvent(MsgComplete))
			}
			return
		case emitted:
			metrics.AnalysisStreamsTotal.WithLabelValues(s.Name(), "failed").Inc()
			log.Warn("Analysis failed after partial output", zap.String("strategy", s.Name()), zap.Error(err))
			send(domain.ErrorEvent("analysis interrupted: " + failureReason(err)))
			return
		}

		metrics.AnalysisFallbackTotal.WithLabelValues(s.Name()).Inc()
		log.Warn("Analysis strategy unavailable", zap.String("strategy", s.Name()), zap.Error(err))
		if i+1 < len(e.strategies) && !send(domain.StatusEvent(failureReason(err)+fallbackNote)) {
			return
		}
	}

	metrics.AnalysisStreamsTotal.WithLabelValues("none", "failed").Inc()
	send(domain.ErrorEvent("analysis failed: no strategy produced output"))
}

// Analyze runs a one-shot completion for req. LLM results are cached by
// prompt; when the LLM is unavailable the canned summary is returned.
func (e *Engine) Analyze(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, domain.ErrNoDocuments
	}

	taskCtx := e.tasks.Start(ctx, req.TaskID)
	defer e.tasks.Finish(req.TaskID)

	log := logger.FromContextOr(ctx, e.logger).With(zap.String("task_id", req.TaskID), zap.String("analysis_type", req.AnalysisType))
	prompt := BuildPrompt(req, e.opts.MaxContextLength, false)

	if e.cache != nil {
		if content, ok := e.cache.Get(ctx, prompt); ok {
			return Result{Content: content, Source: SourceCache}, nil
		}
	}

	content, err := e.llm.Complete(taskCtx, prompt)
	if e.tasks.IsCancelled(req.TaskID) {
		return Result{}, domain.ErrTaskCancelled
	}
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, context.Cause(ctx)
		}
		metrics.AnalysisFallbackTotal.WithLabelValues(StrategyLLM).Inc()
		log.Warn("LLM analysis unavailable, returning canned analysis", zap.Error(err))
		return Result{
			Content: CannedAnalysis(req.AnalysisType, runeCount(req.Text), e.now()),
			Source:  SourceCanned,
		}, nil
	}

	if e.cache != nil {
		e.cache.Put(ctx, prompt, content)
	}
	return Result{Content: content, Source: SourceLLM}, nil
}

// failureReason turns a strategy error into a short user-facing reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		return "LLM API key not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return "LLM request timed out"
	case errors.Is(err, domain.ErrUpstream):
		return "LLM service unavailable"
	case errors.Is(err, errNoContent):
		return "no document content"
	default:
		return "analysis step failed"
	}
}
