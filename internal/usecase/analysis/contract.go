package analysis

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// LLM is the chat-completion collaborator.
type LLM interface {
	Complete(ctx context.Context, p domain.Prompt) (string, error)
	Stream(ctx context.Context, p domain.Prompt) (domain.ContentStream, error)
}

// TaskRegistry tracks analysis tasks and their cancellation.
type TaskRegistry interface {
	Start(ctx context.Context, id string) context.Context
	Finish(id string)
	IsCancelled(id string) bool
}

// ResultCache stores completed non-streaming analyses by prompt.
type ResultCache interface {
	Get(ctx context.Context, p domain.Prompt) (string, bool)
	Put(ctx context.Context, p domain.Prompt, content string)
}
