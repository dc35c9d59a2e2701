package policy

import (
	"testing"

	"github.com/zen-systems/askgate/pkg/config"
)

func baseConfig() *config.RoutingConfig {
	cfg := &config.RoutingConfig{
		Strategy:                   config.StrategyDeterministicFirst,
		DeterministicThreshold:     0.7,
		LLMAssistThreshold:         0.4,
		FoundryDelegationThreshold: 0.4,
	}
	return cfg
}

func TestDeterministicThreshold(t *testing.T) {
	cfg := baseConfig()

	tests := []struct {
		confidence float64
		want       bool
	}{
		{0.0, false},
		{0.69, false},
		{0.7, true},
		{0.9, true},
		{1.0, true},
	}
	for _, tt := range tests {
		if got := ShouldUseDeterministic(cfg, tt.confidence); got != tt.want {
			t.Fatalf("ShouldUseDeterministic(%.2f) = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestDeterministicMonotonic(t *testing.T) {
	cfg := baseConfig()

	prev := false
	for c := 0.0; c <= 1.0; c += 0.05 {
		got := ShouldUseDeterministic(cfg, c)
		if prev && !got {
			t.Fatalf("ShouldUseDeterministic not monotonic at %.2f", c)
		}
		prev = got
	}
}

func TestLLMAssistBand(t *testing.T) {
	cfg := baseConfig()

	tests := []struct {
		confidence float64
		want       bool
	}{
		{0.3, false},
		{0.4, true},
		{0.6, true},
		{0.7, false},
		{0.9, false},
	}
	for _, tt := range tests {
		if got := ShouldUseLLMAssist(cfg, tt.confidence); got != tt.want {
			t.Fatalf("ShouldUseLLMAssist(%.2f) = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestPredicatesMutuallyExclusive(t *testing.T) {
	cfg := baseConfig()

	for c := 0.0; c <= 1.0; c += 0.01 {
		det := ShouldUseDeterministic(cfg, c)
		assist := ShouldUseLLMAssist(cfg, c)
		if det && assist {
			t.Fatalf("deterministic and LLM-assist both true at %.2f", c)
		}
	}
}

func TestStrategyOverrides(t *testing.T) {
	llmOnly := baseConfig()
	llmOnly.Strategy = config.StrategyLLMOnly
	if ShouldUseDeterministic(llmOnly, 1.0) {
		t.Fatalf("llm_only must never route deterministically")
	}
	if !ShouldUseLLMAssist(llmOnly, 0.0) {
		t.Fatalf("llm_only must always use the LLM")
	}

	detOnly := baseConfig()
	detOnly.Strategy = config.StrategyDeterministicOnly
	if !ShouldUseDeterministic(detOnly, 0.0) {
		t.Fatalf("deterministic_only must always route deterministically")
	}
	if ShouldUseLLMAssist(detOnly, 0.5) {
		t.Fatalf("deterministic_only must never use LLM assist")
	}

	disabled := baseConfig()
	off := false
	disabled.EnableDeterministic = &off
	if ShouldUseDeterministic(disabled, 1.0) || ShouldUseLLMAssist(disabled, 0.5) {
		t.Fatalf("disabled deterministic routing must turn both predicates off")
	}
}

func TestFoundryDelegation(t *testing.T) {
	cfg := baseConfig()
	cfg.DelegateToFoundry = true
	cfg.FoundryEndpoint = "https://foundry.example.com"

	if !ShouldDelegateToFoundry(cfg, 0.1) {
		t.Fatalf("expected delegation below threshold")
	}
	if ShouldDelegateToFoundry(cfg, 0.4) {
		t.Fatalf("expected no delegation at threshold")
	}
	if ShouldDelegateToFoundry(cfg, 0.9) {
		t.Fatalf("expected no delegation at high confidence")
	}
}

func TestFoundryGatingRequiresEndpoint(t *testing.T) {
	cfg := baseConfig()
	cfg.DelegateToFoundry = true
	cfg.FoundryEndpoint = ""

	if ShouldDelegateToFoundry(cfg, 0.1) {
		t.Fatalf("delegation must be off without an endpoint")
	}
}

func TestFoundryMonotonicNonIncreasing(t *testing.T) {
	cfg := baseConfig()
	cfg.DelegateToFoundry = true
	cfg.FoundryEndpoint = "https://foundry.example.com"

	prev := true
	for c := 0.0; c <= 1.0; c += 0.05 {
		got := ShouldDelegateToFoundry(cfg, c)
		if !prev && got {
			t.Fatalf("ShouldDelegateToFoundry not non-increasing at %.2f", c)
		}
		prev = got
	}
}

func TestBucketStable(t *testing.T) {
	cfg := baseConfig()
	cfg.ABTestEnabled = true
	cfg.ABTestRatio = 0.5

	for _, id := range []string{"conv-a", "conv-b", "conv-c"} {
		first := Bucket(cfg, id)
		for i := 0; i < 10; i++ {
			if Bucket(cfg, id) != first {
				t.Fatalf("bucket for %s not stable", id)
			}
		}
	}
}

func TestBucketDisabled(t *testing.T) {
	cfg := baseConfig()

	if Bucket(cfg, "anything") != ArmControl {
		t.Fatalf("disabled experiment must assign control")
	}
}

func TestBucketRatioExtremes(t *testing.T) {
	cfg := baseConfig()
	cfg.ABTestEnabled = true

	cfg.ABTestRatio = 1.0
	if Bucket(cfg, "conv-x") != ArmTreatment {
		t.Fatalf("ratio 1.0 must assign treatment")
	}

	cfg.ABTestRatio = 0.0
	if Bucket(cfg, "conv-x") != ArmControl {
		t.Fatalf("ratio 0.0 must assign control")
	}
}
