package orchestrate

import (
	"context"
	"strings"

	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/convo"
)

// attemptKind makes every fallback transition an explicit branch on a
// result value instead of an error caught somewhere up the stack.
type attemptKind int

const (
	// attemptStreamed: the upstream completed and every delta was
	// forwarded.
	attemptStreamed attemptKind = iota

	// attemptFailed: the upstream failed before anything was emitted;
	// the next fallback stage may run.
	attemptFailed

	// attemptPartial: the upstream failed after deltas were emitted.
	// The request is terminal; no other path may add chunks.
	attemptPartial

	// attemptEmitFailed: the caller went away mid-stream.
	attemptEmitFailed
)

type attemptResult struct {
	kind attemptKind
	text string
	err  error
}

// relay forwards one upstream stream to the caller, chunk by chunk in
// arrival order.
func (o *Orchestrator) relay(ctx context.Context, stream *adapter.TextStream, emit EmitFunc) attemptResult {
	var b strings.Builder
	emitted := false

	for chunk := range stream.Chunks() {
		if err := emit(Event{Delta: chunk}); err != nil {
			stream.Cancel()
			for range stream.Chunks() {
			}
			return attemptResult{kind: attemptEmitFailed, text: b.String(), err: err}
		}
		emitted = true
		b.WriteString(chunk)
	}

	if err := stream.Err(); err != nil {
		kind := attemptFailed
		if emitted {
			kind = attemptPartial
		}
		return attemptResult{kind: kind, text: b.String(), err: err}
	}
	return attemptResult{kind: attemptStreamed, text: b.String()}
}

// attemptDelegate makes the single delegation attempt for a request.
func (o *Orchestrator) attemptDelegate(ctx context.Context, req *Request, cctx *convo.Context, emit EmitFunc) attemptResult {
	stream, err := o.delegate.Delegate(ctx, req.Query, req.Messages, cctx)
	if err != nil {
		return attemptResult{kind: attemptFailed, err: err}
	}
	return o.relay(ctx, stream, emit)
}
