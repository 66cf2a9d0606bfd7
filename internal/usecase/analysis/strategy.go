package analysis

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Strategy names, also used as metric labels.
const (
	StrategyLLM     = "llm"
	StrategyContent = "content"
	StrategyCanned  = "canned"
)

var errNoContent = errors.New("no document content to summarise")

// Input is what a strategy produces an analysis from.
type Input struct {
	Request
	Prompt domain.Prompt
}

// EmitFunc delivers one piece of analysis content. A non-nil error means the
// strategy must stop and return it.
type EmitFunc func(content string) error

// Strategy produces analysis content. It fails without emitting when it
// cannot serve the request, which lets the engine try the next one.
type Strategy interface {
	Name() string
	Produce(ctx context.Context, in Input, emit EmitFunc) error
}

type llmStrategy struct {
	llm LLM
}

func (s llmStrategy) Name() string { return StrategyLLM }

func (s llmStrategy) Produce(ctx context.Context, in Input, emit EmitFunc) error {
	stream, err := s.llm.Stream(ctx, in.Prompt)
	if err != nil {
		return err //nolint:wrapcheck // classified by the engine
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err //nolint:wrapcheck // classified by the engine
		}
		if err := emit(chunk); err != nil {
			return err
		}
	}
}

// contentStrategy emits a report built from facts observed in the text,
// one section at a time with a pause in between.
type contentStrategy struct {
	pace time.Duration
	now  func() time.Time
}

func (s contentStrategy) Name() string { return StrategyContent }

func (s contentStrategy) Produce(ctx context.Context, in Input, emit EmitFunc) error {
	sections := ContentSections(in.Text, in.AnalysisType, s.now())
	if len(sections) == 0 {
		return errNoContent
	}
	for i, sec := range sections {
		if i > 0 {
			if err := sleep(ctx, s.pace); err != nil {
				return err
			}
		}
		if err := emit(sec); err != nil {
			return err
		}
	}
	return nil
}

type cannedStrategy struct {
	now func() time.Time
}

func (s cannedStrategy) Name() string { return StrategyCanned }

func (s cannedStrategy) Produce(_ context.Context, in Input, emit EmitFunc) error {
	return emit(CannedAnalysis(in.AnalysisType, runeCount(in.Text), s.now()))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
