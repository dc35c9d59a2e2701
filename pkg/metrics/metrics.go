// Package metrics records classification outcomes and user feedback
// for offline quality analysis. The recorder keeps a bounded in-memory
// ring for fast introspection; full history goes to the telemetry sink.
package metrics

import (
	"sync"
	"time"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 100

// ClassificationRecord is one routed request.
type ClassificationRecord struct {
	Query      string    `json:"query"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
}

// FeedbackRecord is one user rating of an answer.
type FeedbackRecord struct {
	ConversationID string    `json:"conversation_id"`
	Helpful        bool      `json:"helpful"`
	Comment        string    `json:"comment,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Recorder is safe for concurrent use from many request tasks. Each
// insert is atomic; ordering across concurrent requests is not
// guaranteed.
type Recorder struct {
	mu       sync.Mutex
	records  []ClassificationRecord
	next     int
	full     bool
	feedback []FeedbackRecord
	sink     Telemetry
}

// NewRecorder builds a recorder with the given ring capacity and sink.
func NewRecorder(capacity int, sink Telemetry) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if sink == nil {
		sink = NopTelemetry{}
	}
	return &Recorder{
		records: make([]ClassificationRecord, capacity),
		sink:    sink,
	}
}

// RecordClassification appends one classification outcome and forwards
// it to the sink.
func (r *Recorder) RecordClassification(query, intent string, confidence float64, path string) {
	rec := ClassificationRecord{
		Query:      query,
		Intent:     intent,
		Confidence: confidence,
		Path:       path,
		Timestamp:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.records[r.next] = rec
	r.next++
	if r.next == len(r.records) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()

	r.sink.TrackEvent("classification", map[string]any{
		"intent":     rec.Intent,
		"confidence": rec.Confidence,
		"path":       rec.Path,
	})
}

// RecordFeedback appends one feedback record and forwards it to the
// sink. Feedback shares the classification ring capacity.
func (r *Recorder) RecordFeedback(rec FeedbackRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.feedback = append(r.feedback, rec)
	if len(r.feedback) > len(r.records) {
		r.feedback = r.feedback[1:]
	}
	r.mu.Unlock()

	r.sink.TrackEvent("feedback", map[string]any{
		"conversation_id": rec.ConversationID,
		"helpful":         rec.Helpful,
	})
}

// Recent returns up to n classification records, newest first.
func (r *Recorder) Recent(n int) []ClassificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.records)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]ClassificationRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.records)) % len(r.records)
		out = append(out, r.records[idx])
	}
	return out
}

// RecentFeedback returns up to n feedback records, newest first.
func (r *Recorder) RecentFeedback(n int) []FeedbackRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.feedback) {
		n = len(r.feedback)
	}
	out := make([]FeedbackRecord, 0, n)
	for i := len(r.feedback) - 1; i >= len(r.feedback)-n; i-- {
		out = append(out, r.feedback[i])
	}
	return out
}

// Sink exposes the telemetry sink for direct event tracking.
func (r *Recorder) Sink() Telemetry {
	return r.sink
}
