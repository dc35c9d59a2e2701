// Package policy holds the stateless routing decision functions.
//
// Each predicate takes the immutable routing config and a confidence
// score. For a valid config the deterministic and LLM-assist regions are
// mutually exclusive; Foundry delegation is an orthogonal override layer
// that callers check before the threshold ladder.
package policy

import "github.com/zen-systems/askgate/pkg/config"

// ShouldUseDeterministic reports whether a query with the given confidence
// is answered directly from structured data.
func ShouldUseDeterministic(cfg *config.RoutingConfig, confidence float64) bool {
	if !cfg.DeterministicEnabled() || cfg.Strategy == config.StrategyLLMOnly {
		return false
	}
	if cfg.Strategy == config.StrategyDeterministicOnly {
		return true
	}
	return confidence >= cfg.DeterministicThreshold
}

// ShouldUseLLMAssist reports whether a query falls into the mid-confidence
// band that is forwarded to the general-purpose LLM with plan context.
func ShouldUseLLMAssist(cfg *config.RoutingConfig, confidence float64) bool {
	if !cfg.DeterministicEnabled() {
		return false
	}
	switch cfg.Strategy {
	case config.StrategyLLMOnly:
		return true
	case config.StrategyDeterministicOnly:
		return false
	}
	return confidence >= cfg.LLMAssistThreshold && confidence < cfg.DeterministicThreshold
}

// ShouldDelegateToFoundry reports whether a query is delegated to the
// external agent service. Requires the delegate flag and a configured
// endpoint; fires only below the delegation threshold.
func ShouldDelegateToFoundry(cfg *config.RoutingConfig, confidence float64) bool {
	if !cfg.DelegateToFoundry || cfg.FoundryEndpoint == "" {
		return false
	}
	return confidence < cfg.FoundryDelegationThreshold
}
