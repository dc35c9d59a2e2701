// Package sse implements the server-sent-events wire format used on
// both sides of the gateway: parsing upstream delegation streams and
// writing the outgoing response stream.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// DoneMarker terminates every event stream.
const DoneMarker = "[DONE]"

// Event is a single parsed server-sent event.
type Event struct {
	Type string
	Data string
	ID   string
}

// IsDone reports whether the event is the stream terminator.
func (e *Event) IsDone() bool {
	return strings.TrimSpace(e.Data) == DoneMarker
}

// maxLineSize bounds a single event line; upstream deltas are small but
// adaptive card payloads can run large.
const maxLineSize = 1024 * 1024

// Reader parses server-sent events from a response body.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Next returns the next event, or io.EOF when the stream ends. Comment
// lines and unknown fields are skipped; multi-line data is joined with
// newlines per the SSE spec.
func (r *Reader) Next() (*Event, error) {
	var ev Event
	var data []string
	seen := false

	flush := func() *Event {
		ev.Data = strings.Join(data, "\n")
		return &ev
	}

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if seen {
				return flush(), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
			seen = true
		case "data":
			data = append(data, value)
			seen = true
		case "id":
			ev.ID = value
			seen = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if seen {
		return flush(), nil
	}
	return nil, io.EOF
}
