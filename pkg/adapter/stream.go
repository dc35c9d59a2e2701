package adapter

import (
	"context"
	"sync"
)

// Usage captures normalized token usage reported by a provider, when
// the provider reports any.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TextStream delivers incremental completion text from a single
// provider call. One goroutine produces (Send, SetUsage, Close), any
// consumer ranges over Chunks. Err and Usage are valid once Chunks is
// closed.
type TextStream struct {
	ch     chan string
	cancel chan struct{}

	mu    sync.Mutex
	err   error
	usage *Usage

	closeOnce  sync.Once
	cancelOnce sync.Once
}

func NewTextStream() *TextStream {
	return &TextStream{
		ch:     make(chan string, 16),
		cancel: make(chan struct{}),
	}
}

// Chunks returns the delta channel. It is closed when the stream ends,
// successfully or not.
func (s *TextStream) Chunks() <-chan string {
	return s.ch
}

// Send delivers one delta, returning false when the consumer went away
// or ctx was cancelled. Producer side only.
func (s *TextStream) Send(ctx context.Context, text string) bool {
	select {
	case s.ch <- text:
		return true
	case <-s.cancel:
		return false
	case <-ctx.Done():
		return false
	}
}

// SetUsage records provider-reported token usage. Producer side only,
// before Close.
func (s *TextStream) SetUsage(u *Usage) {
	s.mu.Lock()
	s.usage = u
	s.mu.Unlock()
}

// Close ends the stream with an optional terminal error. Producer side
// only; safe to call more than once.
func (s *TextStream) Close(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.ch)
	})
}

// Cancel tells the producer to stop without draining. Consumer side.
func (s *TextStream) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancel)
	})
}

// Err returns the terminal error, if any. Valid after Chunks closes.
func (s *TextStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Usage returns provider-reported usage, or nil. Valid after Chunks
// closes.
func (s *TextStream) Usage() *Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
