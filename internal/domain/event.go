package domain

// EventType discriminates analysis stream events.
type EventType string

// Analysis event types as they appear on the wire.
const (
	EventStatus           EventType = "status"
	EventAnalysisStart    EventType = "analysis_start"
	EventAnalysisChunk    EventType = "analysis_chunk"
	EventAnalysisComplete EventType = "analysis_complete"
	EventError            EventType = "error"
)

// Event is a single analysis stream event.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Content string    `json:"content,omitempty"`
}

// IsTerminal reports whether no further events follow e for the same task.
func (e Event) IsTerminal() bool {
	return e.Type == EventAnalysisComplete || e.Type == EventError
}

// StatusEvent creates a status event.
func StatusEvent(msg string) Event { return Event{Type: EventStatus, Message: msg} }

// ChunkEvent creates a content delta event.
func ChunkEvent(content string) Event { return Event{Type: EventAnalysisChunk, Content: content} }

// ErrorEvent creates a terminal error event.
func ErrorEvent(msg string) Event { return Event{Type: EventError, Message: msg} }
