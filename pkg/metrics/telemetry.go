package metrics

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zen-systems/askgate/pkg/adapter"
)

// Telemetry is the external sink for the full event history.
type Telemetry interface {
	// TrackEvent records a named event with arbitrary properties.
	TrackEvent(name string, props map[string]any)

	// LogRefusal records an upstream provider rejecting a request.
	LogRefusal(provider string, err error)

	// TrackModelInference records one upstream model call.
	TrackModelInference(provider, model string, usage *adapter.Usage, latency time.Duration)
}

// NopTelemetry discards everything.
type NopTelemetry struct{}

func (NopTelemetry) TrackEvent(string, map[string]any) {}

func (NopTelemetry) LogRefusal(string, error) {}

func (NopTelemetry) TrackModelInference(string, string, *adapter.Usage, time.Duration) {}

// LogTelemetry writes events to the process log.
type LogTelemetry struct {
	logger *log.Logger
}

func NewLogTelemetry() *LogTelemetry {
	return &LogTelemetry{logger: log.New(os.Stderr, "[telemetry] ", log.LstdFlags)}
}

func (t *LogTelemetry) TrackEvent(name string, props map[string]any) {
	t.logger.Printf("event=%s props=%v", name, props)
}

func (t *LogTelemetry) LogRefusal(provider string, err error) {
	t.logger.Printf("refusal provider=%s err=%v", provider, err)
}

func (t *LogTelemetry) TrackModelInference(provider, model string, usage *adapter.Usage, latency time.Duration) {
	total := 0
	if usage != nil {
		total = usage.TotalTokens
	}
	t.logger.Printf("inference provider=%s model=%s tokens=%d latency=%s", provider, model, total, latency)
}

// FileTelemetry appends events as JSON lines under a base directory,
// one file per day.
type FileTelemetry struct {
	mu      sync.Mutex
	baseDir string
	file    *os.File
	day     string
}

type telemetryLine struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Name      string         `json:"name,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	Model     string         `json:"model,omitempty"`
	Error     string         `json:"error,omitempty"`
	LatencyMS int64          `json:"latency_ms,omitempty"`
	Usage     *adapter.Usage `json:"usage,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
}

func NewFileTelemetry(baseDir string) (*FileTelemetry, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("telemetry dir: %w", err)
	}
	return &FileTelemetry{baseDir: baseDir}, nil
}

func (t *FileTelemetry) TrackEvent(name string, props map[string]any) {
	t.write(telemetryLine{Kind: "event", Name: name, Props: props})
}

func (t *FileTelemetry) LogRefusal(provider string, err error) {
	line := telemetryLine{Kind: "refusal", Provider: provider}
	if err != nil {
		line.Error = err.Error()
	}
	t.write(line)
}

func (t *FileTelemetry) TrackModelInference(provider, model string, usage *adapter.Usage, latency time.Duration) {
	t.write(telemetryLine{
		Kind:      "inference",
		Provider:  provider,
		Model:     model,
		Usage:     usage,
		LatencyMS: latency.Milliseconds(),
	})
}

// Close releases the current day file.
func (t *FileTelemetry) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func (t *FileTelemetry) write(line telemetryLine) {
	line.Timestamp = time.Now().UTC()
	data, err := json.Marshal(line)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	day := line.Timestamp.Format("2006-01-02")
	if t.file == nil || day != t.day {
		if t.file != nil {
			t.file.Close()
		}
		f, err := os.OpenFile(filepath.Join(t.baseDir, day+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.file = nil
			return
		}
		t.file = f
		t.day = day
	}
	t.file.Write(append(data, '\n'))
}
