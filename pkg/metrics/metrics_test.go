package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zen-systems/askgate/pkg/adapter"
)

func TestRecorderRingEviction(t *testing.T) {
	r := NewRecorder(3, nil)

	for i := 0; i < 5; i++ {
		r.RecordClassification(fmt.Sprintf("query %d", i), "event_overview", 0.6, "deterministic")
	}

	recent := r.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Query != "query 4" {
		t.Fatalf("newest = %q", recent[0].Query)
	}
	if recent[2].Query != "query 2" {
		t.Fatalf("oldest retained = %q", recent[2].Query)
	}
}

func TestRecorderRecentLimit(t *testing.T) {
	r := NewRecorder(10, nil)
	for i := 0; i < 4; i++ {
		r.RecordClassification(fmt.Sprintf("q%d", i), "project_search", 0.7, "deterministic")
	}

	if got := len(r.Recent(2)); got != 2 {
		t.Fatalf("Recent(2) len = %d", got)
	}
	if got := len(r.Recent(100)); got != 4 {
		t.Fatalf("Recent(100) len = %d", got)
	}
}

func TestRecorderConcurrentAppend(t *testing.T) {
	r := NewRecorder(64, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.RecordClassification(fmt.Sprintf("worker %d query %d", n, j), "unmatched", 0.3, "fallback_static")
			}
		}(i)
	}
	wg.Wait()

	recent := r.Recent(0)
	if len(recent) != 64 {
		t.Fatalf("ring len = %d, want 64", len(recent))
	}
	for _, rec := range recent {
		if rec.Query == "" || rec.Path == "" {
			t.Fatalf("torn record: %+v", rec)
		}
	}
}

func TestRecorderFeedback(t *testing.T) {
	r := NewRecorder(5, nil)
	r.RecordFeedback(FeedbackRecord{ConversationID: "conv-1", Helpful: true})
	r.RecordFeedback(FeedbackRecord{ConversationID: "conv-2", Helpful: false, Comment: "wrong room"})

	fb := r.RecentFeedback(0)
	if len(fb) != 2 {
		t.Fatalf("len = %d", len(fb))
	}
	if fb[0].ConversationID != "conv-2" {
		t.Fatalf("newest = %q", fb[0].ConversationID)
	}
	if fb[0].Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []string
}

func (c *captureSink) TrackEvent(name string, _ map[string]any) {
	c.mu.Lock()
	c.events = append(c.events, name)
	c.mu.Unlock()
}

func (c *captureSink) LogRefusal(string, error) {}

func (c *captureSink) TrackModelInference(string, string, *adapter.Usage, time.Duration) {}

func TestRecorderForwardsToSink(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(5, sink)

	r.RecordClassification("q", "event_schedule", 0.73, "deterministic")
	r.RecordFeedback(FeedbackRecord{ConversationID: "conv-1"})

	if len(sink.events) != 2 || sink.events[0] != "classification" || sink.events[1] != "feedback" {
		t.Fatalf("events = %v", sink.events)
	}
}

func TestFileTelemetryWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	ft, err := NewFileTelemetry(dir)
	if err != nil {
		t.Fatalf("NewFileTelemetry: %v", err)
	}
	defer ft.Close()

	ft.TrackEvent("classification", map[string]any{"intent": "person_search"})
	ft.LogRefusal("openai", fmt.Errorf("status 401"))

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadDir: %v entries=%d", err, len(entries))
	}

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0]["kind"] != "event" || lines[1]["kind"] != "refusal" {
		t.Fatalf("kinds = %v, %v", lines[0]["kind"], lines[1]["kind"])
	}
}
