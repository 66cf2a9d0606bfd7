package domain

// Prompt is a two-message chat prompt for the LLM collaborator.
type Prompt struct {
	System string
	User   string
}

// ContentStream yields content deltas of a streaming LLM completion.
// Recv returns io.EOF after the last delta.
type ContentStream interface {
	Recv() (string, error)
	Close() error
}
