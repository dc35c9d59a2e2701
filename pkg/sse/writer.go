package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Writer emits a text/event-stream response, flushing after every event
// so the first byte reaches the caller without buffering.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming and writes the stream
// headers. Fails when the underlying writer cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Writer{w: w, flusher: flusher}, nil
}

// WriteJSON marshals v and emits it as one data event.
func (w *Writer) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// WriteDone emits the stream terminator.
func (w *Writer) WriteDone() error {
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", DoneMarker); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}
