package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// eventWriter writes analysis events as server-sent events, one
// `data: <json>` frame per event, flushed immediately.
type eventWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) start() {
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	// Streams outlive the server write timeout.
	_ = e.rc.SetWriteDeadline(time.Time{})
	e.w.WriteHeader(http.StatusOK)
	e.started = true
}

func (e *eventWriter) write(ev domain.Event) error {
	if !e.started {
		e.start()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := e.rc.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}
