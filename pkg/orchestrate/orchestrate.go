// Package orchestrate sequences the response pipeline: card-action
// dispatch, forced delegation, classification, agent delegation,
// deterministic answers, general-LLM forwarding and static fallback.
// One inbound request produces exactly one outgoing event stream.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zen-systems/askgate/pkg/actions"
	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/convo"
	"github.com/zen-systems/askgate/pkg/foundry"
	"github.com/zen-systems/askgate/pkg/intent"
	"github.com/zen-systems/askgate/pkg/metrics"
	"github.com/zen-systems/askgate/pkg/policy"
)

// Path tags attached to metrics events and the conversation stage.
const (
	PathCardAction     = "card_action"
	PathFoundrySuccess = "foundry_delegate_success"
	PathFoundryError   = "foundry_delegate_error"
	PathFallbackStatic = "fallback_static"
	PathFallbackLLM    = "fallback_llm_error"
	PathDeterministic  = "deterministic"
	PathLLMAssist      = "llm_assist"
	PathLLMForward     = "llm_forward"
)

// Event is one outgoing stream payload.
type Event struct {
	Delta        string          `json:"delta,omitempty"`
	AdaptiveCard json.RawMessage `json:"adaptive_card,omitempty"`
	Context      map[string]any  `json:"context,omitempty"`
	Fallback     bool            `json:"fallback,omitempty"`
	Error        string          `json:"error,omitempty"`
	Debug        map[string]any  `json:"debug,omitempty"`
}

// EmitFunc delivers one event to the caller. A non-nil error means the
// caller is gone and the pipeline must stop.
type EmitFunc func(Event) error

// PlanAnswer is the deterministic answer produced from a query plan.
type PlanAnswer struct {
	Text    string
	Card    json.RawMessage
	Results []map[string]any
}

// PlanExecutor is the external collaborator that executes query plans
// against the structured data store.
type PlanExecutor interface {
	Execute(ctx context.Context, c *intent.Classification, cctx *convo.Context) (*PlanAnswer, error)
}

// Request is one inbound chat turn, already authenticated and parsed.
type Request struct {
	Query         string
	Messages      []convo.Message
	Context       *convo.Context
	Temperature   *float64
	MaxTokens     int
	ForceDelegate bool
	Debug         bool
}

// Orchestrator routes requests. Safe for concurrent use; all fields are
// set at construction and never mutated.
type Orchestrator struct {
	cfg        *config.RoutingConfig
	classifier *intent.Classifier
	registry   *actions.Registry
	delegate   *foundry.Client
	llm        adapter.Adapter
	executor   PlanExecutor
	recorder   *metrics.Recorder
	logger     *log.Logger
}

// Options wires the orchestrator's collaborators. Classifier, registry
// and recorder are required; a nil Delegate disables agent delegation
// and a nil Executor disables deterministic answers.
type Options struct {
	Config     *config.RoutingConfig
	Classifier *intent.Classifier
	Registry   *actions.Registry
	Delegate   *foundry.Client
	LLM        adapter.Adapter
	Executor   PlanExecutor
	Recorder   *metrics.Recorder
	Logger     *log.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("orchestrate: config is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("orchestrate: classifier is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("orchestrate: action registry is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewRecorder(0, nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[router] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:        opts.Config,
		classifier: opts.Classifier,
		registry:   opts.Registry,
		delegate:   opts.Delegate,
		llm:        opts.LLM,
		executor:   opts.Executor,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}, nil
}

// Respond runs the state machine for one request, emitting events until
// the chosen path completes. The caller writes the terminating marker
// after Respond returns. The conversation context is advanced once and
// its stage is set once, by whichever path terminates the request.
func (o *Orchestrator) Respond(ctx context.Context, req *Request, emit EmitFunc) error {
	cctx := req.Context
	if cctx == nil {
		cctx = convo.ExtractFromMessages(nil, req.Messages)
	}
	cctx.AdvanceTurn()

	// Card actions bypass classification entirely.
	if action, payload, ok := actions.ParsePayload(req.Query); ok {
		return o.dispatchAction(ctx, action, payload, cctx, emit)
	}

	// Per-request forced delegation. Failures continue to LLM
	// forwarding without surfacing anything to the caller.
	if req.ForceDelegate && o.delegate != nil {
		res := o.attemptDelegate(ctx, req, cctx, emit)
		switch res.kind {
		case attemptStreamed:
			return o.finish(ctx, req, cctx, PathFoundrySuccess, "forced_delegation", 1.0, emit)
		case attemptEmitFailed:
			return res.err
		case attemptPartial:
			return o.finish(ctx, req, cctx, PathFoundryError, "forced_delegation", 1.0, emit)
		}
		o.logger.Printf("forced delegation failed, forwarding to LLM: %v", res.err)
	}

	decision := o.classifier.Analyze(req.Query)
	arm := policy.Bucket(o.cfg, cctx.ConversationID)
	if o.cfg.ABTestEnabled {
		o.recorder.Sink().TrackEvent("ab_bucket", map[string]any{
			"conversation_id": cctx.ConversationID,
			"arm":             string(arm),
		})
	}

	if req.Debug {
		if err := emit(Event{Debug: debugInfo(decision, arm)}); err != nil {
			return err
		}
	}

	if decision.IsUnmatched() {
		return o.respondUnmatched(ctx, req, decision, cctx, emit)
	}
	return o.respondMatched(ctx, req, decision, arm, cctx, emit)
}

// respondUnmatched handles the distinguished no-pattern-matched state:
// escalate to the agent service when delegation is enabled, otherwise
// degrade to the static capability message. Threshold logic never
// applies here.
func (o *Orchestrator) respondUnmatched(ctx context.Context, req *Request, decision *intent.Classification, cctx *convo.Context, emit EmitFunc) error {
	if o.delegate != nil && o.cfg.DelegateToFoundry {
		res := o.attemptDelegate(ctx, req, cctx, emit)
		switch res.kind {
		case attemptStreamed:
			return o.finish(ctx, req, cctx, PathFoundrySuccess, decision.Intent, decision.Confidence, emit)
		case attemptEmitFailed:
			return res.err
		case attemptPartial:
			return o.finish(ctx, req, cctx, PathFoundryError, decision.Intent, decision.Confidence, emit)
		}
		o.logger.Printf("delegation failed for unmatched query: %v", res.err)
		return o.emitStaticFallback(ctx, req, decision, cctx, PathFoundryError, emit)
	}
	return o.emitStaticFallback(ctx, req, decision, cctx, PathFallbackStatic, emit)
}

// respondMatched applies the delegation override first, then the
// threshold ladder: deterministic answer, LLM with plan context, plain
// LLM forwarding.
func (o *Orchestrator) respondMatched(ctx context.Context, req *Request, decision *intent.Classification, arm policy.Arm, cctx *convo.Context, emit EmitFunc) error {
	if o.delegate != nil && policy.ShouldDelegateToFoundry(o.cfg, decision.Confidence) {
		res := o.attemptDelegate(ctx, req, cctx, emit)
		switch res.kind {
		case attemptStreamed:
			return o.finish(ctx, req, cctx, PathFoundrySuccess, decision.Intent, decision.Confidence, emit)
		case attemptEmitFailed:
			return res.err
		case attemptPartial:
			return o.finish(ctx, req, cctx, PathFoundryError, decision.Intent, decision.Confidence, emit)
		}
		o.logger.Printf("delegation failed, continuing ladder: %v", res.err)
	}

	// Treatment conversations skip the deterministic step and forward
	// to the LLM with the same plan context, so the two answer sources
	// can be compared on identical traffic.
	treatment := o.cfg.ABTestEnabled && arm == policy.ArmTreatment

	deterministic := policy.ShouldUseDeterministic(o.cfg, decision.Confidence)
	if o.executor != nil && deterministic && !treatment {
		answer, err := o.executor.Execute(ctx, decision, cctx)
		if err == nil && answer != nil {
			if len(answer.Results) > 0 {
				cctx.LastResults = answer.Results
			}
			ev := Event{Delta: answer.Text, AdaptiveCard: answer.Card}
			return o.finishWith(ctx, req, cctx, PathDeterministic, decision.Intent, decision.Confidence, emit, ev)
		}
		o.logger.Printf("plan execution failed for %s, forwarding to LLM: %v", decision.Intent, err)
	}

	withPlan := policy.ShouldUseLLMAssist(o.cfg, decision.Confidence) || (treatment && deterministic)
	return o.forwardToLLM(ctx, req, decision, cctx, withPlan, emit)
}

// dispatchAction is the terminal card-action path. Validation and
// handler errors are streamed as error payloads, not surfaced as HTTP
// failures.
func (o *Orchestrator) dispatchAction(ctx context.Context, action string, payload map[string]any, cctx *convo.Context, emit EmitFunc) error {
	res, err := o.registry.Dispatch(ctx, action, payload, cctx)
	if err != nil {
		o.logger.Printf("action %s failed: %v", action, err)
		ev := Event{Error: err.Error(), Delta: "Sorry, that action could not be completed."}
		return o.finishWith(ctx, nil, cctx, PathCardAction, action, 1.0, emit, ev)
	}
	return o.finishWith(ctx, nil, cctx, PathCardAction, action, 1.0, emit, Event{Delta: res.Text, AdaptiveCard: res.Card})
}

// forwardToLLM streams the general-purpose LLM's answer, optionally
// prefixed with plan context. On failure the static fallback message is
// the last stage.
func (o *Orchestrator) forwardToLLM(ctx context.Context, req *Request, decision *intent.Classification, cctx *convo.Context, withPlan bool, emit EmitFunc) error {
	path := PathLLMForward
	if withPlan {
		path = PathLLMAssist
	}

	if o.llm == nil {
		return o.emitStaticFallback(ctx, req, decision, cctx, PathFallbackStatic, emit)
	}

	msgs := toAdapterMessages(req.Messages)
	if len(msgs) == 0 {
		msgs = []adapter.Message{{Role: "user", Content: req.Query}}
	}
	if withPlan {
		msgs = append([]adapter.Message{{Role: "system", Content: planContext(decision)}}, msgs...)
	}

	opts := adapter.StreamOptions{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = o.cfg.LLM.MaxTokens
	}

	start := time.Now()
	stream, err := o.llm.Stream(ctx, o.cfg.LLM.Model, msgs, opts)
	if err != nil {
		// Upstream rejections (4xx, content policy) surface to the
		// caller; everything else degrades to the static fallback.
		if adapter.IsRejection(err) {
			o.recorder.Sink().LogRefusal(o.llm.Name(), err)
			return fmt.Errorf("llm rejected request: %w", err)
		}
		o.logger.Printf("llm stream failed to open: %v", err)
		return o.emitStaticFallback(ctx, req, decision, cctx, PathFallbackLLM, emit)
	}

	res := o.relay(ctx, stream, emit)
	latency := time.Since(start)
	usage := stream.Usage()
	if usage == nil {
		usage = &adapter.Usage{CompletionTokens: approxTokens(res.text)}
	}
	o.recorder.Sink().TrackModelInference(o.llm.Name(), o.cfg.LLM.Model, usage, latency)

	switch res.kind {
	case attemptStreamed, attemptPartial:
		return o.finish(ctx, req, cctx, path, decision.Intent, decision.Confidence, emit)
	case attemptEmitFailed:
		return res.err
	default:
		if adapter.IsRejection(res.err) {
			o.recorder.Sink().LogRefusal(o.llm.Name(), res.err)
			return fmt.Errorf("llm rejected request: %w", res.err)
		}
		o.logger.Printf("llm stream failed: %v", res.err)
		return o.emitStaticFallback(ctx, req, decision, cctx, PathFallbackLLM, emit)
	}
}

// emitStaticFallback is the last rung of the ladder: one fallback
// message, flagged so the UI can distinguish it from a real answer.
func (o *Orchestrator) emitStaticFallback(ctx context.Context, req *Request, decision *intent.Classification, cctx *convo.Context, path string, emit EmitFunc) error {
	msg := o.cfg.StaticFallbackMessage
	if msg == "" {
		msg = config.DefaultStaticFallback
	}
	intentName := intent.Unmatched
	confidence := intent.UnmatchedConfidence
	if decision != nil {
		intentName = decision.Intent
		confidence = decision.Confidence
	}
	return o.finishWith(ctx, req, cctx, path, intentName, confidence, emit, Event{Delta: msg, Fallback: true})
}

// finish performs the once-per-request side effects: stage update,
// context event, metrics record. Streaming paths call it after their
// last delta; single-shot paths use finishWith to fold the context
// into the answer event itself.
func (o *Orchestrator) finish(ctx context.Context, req *Request, cctx *convo.Context, path, intentName string, confidence float64, emit EmitFunc) error {
	return o.finishWith(ctx, req, cctx, path, intentName, confidence, emit, Event{})
}

func (o *Orchestrator) finishWith(_ context.Context, req *Request, cctx *convo.Context, path, intentName string, confidence float64, emit EmitFunc, ev Event) error {
	cctx.SetStage(path)
	ev.Context = cctx.ToMap()
	if err := emit(ev); err != nil {
		return err
	}

	query := ""
	if req != nil {
		query = req.Query
	}
	o.recorder.RecordClassification(query, intentName, confidence, path)
	return nil
}

func toAdapterMessages(msgs []convo.Message) []adapter.Message {
	out := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, adapter.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// planContext summarizes the classification for LLM forwards that
// carry plan context.
func planContext(decision *intent.Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user's query was classified as intent %q (confidence %.2f).", decision.Intent, decision.Confidence)
	for name, val := range decision.Entities {
		if val != nil {
			fmt.Fprintf(&b, " Extracted %s: %q.", name, *val)
		}
	}
	if len(decision.Plan) > 0 {
		b.WriteString(" Suggested data access:")
		for _, step := range decision.Plan {
			fmt.Fprintf(&b, " %s %s;", step.Operation, step.Endpoint)
		}
	}
	b.WriteString(" Answer using this context when it helps.")
	return b.String()
}

func debugInfo(decision *intent.Classification, arm policy.Arm) map[string]any {
	info := map[string]any{
		"intent":     decision.Intent,
		"confidence": decision.Confidence,
		"arm":        string(arm),
	}
	if len(decision.Plan) > 0 {
		steps := make([]string, 0, len(decision.Plan))
		for _, step := range decision.Plan {
			steps = append(steps, fmt.Sprintf("%s %s", step.Operation, step.Endpoint))
		}
		info["plan"] = steps
	}
	return info
}

// approxTokens estimates token counts when the provider reports none.
func approxTokens(text string) int {
	return len(text) / 4
}
