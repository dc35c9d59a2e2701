package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Strategy selects how queries are split between deterministic answers
// and LLM forwarding.
type Strategy string

const (
	StrategyDeterministicFirst Strategy = "deterministic_first"
	StrategyLLMOnly            Strategy = "llm_only"
	StrategyDeterministicOnly  Strategy = "deterministic_only"
	StrategyHybrid             Strategy = "hybrid"
)

// RoutingConfig holds the routing policy configuration. It is loaded once
// at process start and treated as immutable for the process lifetime.
type RoutingConfig struct {
	Strategy                   Strategy `yaml:"strategy,omitempty"`
	EnableDeterministic        *bool    `yaml:"enable_deterministic,omitempty"`
	DeterministicThreshold     float64  `yaml:"deterministic_threshold,omitempty"`
	LLMAssistThreshold         float64  `yaml:"llm_assist_threshold,omitempty"`
	FoundryDelegationThreshold float64  `yaml:"foundry_delegation_threshold,omitempty"`

	DelegateToFoundry     bool   `yaml:"delegate_to_foundry,omitempty"`
	FoundryEndpoint       string `yaml:"foundry_endpoint,omitempty"`
	FoundryAgentID        string `yaml:"foundry_agent_id,omitempty"`
	FoundryTimeoutSeconds int    `yaml:"foundry_timeout_seconds,omitempty"`
	AllowDelegateOverride bool   `yaml:"allow_delegate_override,omitempty"`
	DelegateRequiredRole  string `yaml:"delegate_required_role,omitempty"`

	ABTestEnabled bool    `yaml:"ab_test_enabled,omitempty"`
	ABTestRatio   float64 `yaml:"ab_test_ratio,omitempty"`

	LLM LLMTarget `yaml:"llm,omitempty"`

	StaticFallbackMessage string `yaml:"static_fallback_message,omitempty"`
}

// LLMTarget specifies the general-purpose LLM used for forwarding.
type LLMTarget struct {
	Provider       string `yaml:"provider,omitempty"` // openai, anthropic, google, mock
	Model          string `yaml:"model,omitempty"`
	Endpoint       string `yaml:"endpoint,omitempty"`
	Deployment     string `yaml:"deployment,omitempty"`
	APIVersion     string `yaml:"api_version,omitempty"`
	MaxTokens      int    `yaml:"max_tokens,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Validate checks the Azure-style target fields. A deployment only
// makes sense against an explicit endpoint and API version, so the
// three must be set together.
func (t LLMTarget) Validate() error {
	if t.Deployment == "" && t.APIVersion == "" {
		return nil
	}
	if t.Endpoint == "" || t.Deployment == "" || t.APIVersion == "" {
		return fmt.Errorf("llm target: endpoint, deployment and api_version must be set together (endpoint=%q deployment=%q api_version=%q)",
			t.Endpoint, t.Deployment, t.APIVersion)
	}
	return nil
}

// DefaultStaticFallback is emitted when no routing stage can answer.
const DefaultStaticFallback = "I can answer questions about the event, its schedule, " +
	"projects, presenters, and equipment logistics. Try asking about a specific " +
	"project, a category, or what is happening at the event."

// LoadRoutingConfig reads routing configuration from a YAML file.
// Environment variables take precedence over file values.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyRoutingDefaults(&cfg)
	applyRoutingEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultRoutingConfig returns the default routing configuration with
// environment overrides applied.
func DefaultRoutingConfig() *RoutingConfig {
	cfg := &RoutingConfig{}
	applyRoutingDefaults(cfg)
	applyRoutingEnv(cfg)
	return cfg
}

// DeterministicEnabled reports whether deterministic routing is on.
func (c *RoutingConfig) DeterministicEnabled() bool {
	return c.EnableDeterministic == nil || *c.EnableDeterministic
}

// Validate checks the threshold ordering invariant and strategy value.
func (c *RoutingConfig) Validate() error {
	if c.LLMAssistThreshold < 0 || c.DeterministicThreshold > 1 ||
		c.LLMAssistThreshold > c.DeterministicThreshold {
		return fmt.Errorf("invalid thresholds: require 0 <= llm_assist (%.2f) <= deterministic (%.2f) <= 1",
			c.LLMAssistThreshold, c.DeterministicThreshold)
	}
	if c.FoundryDelegationThreshold < 0 || c.FoundryDelegationThreshold > 1 {
		return fmt.Errorf("foundry_delegation_threshold %.2f out of range", c.FoundryDelegationThreshold)
	}
	switch c.Strategy {
	case StrategyDeterministicFirst, StrategyLLMOnly, StrategyDeterministicOnly, StrategyHybrid:
	default:
		return fmt.Errorf("unknown routing strategy %q", c.Strategy)
	}
	if c.ABTestRatio < 0 || c.ABTestRatio > 1 {
		return fmt.Errorf("ab_test_ratio %.2f out of range", c.ABTestRatio)
	}
	return c.LLM.Validate()
}

func applyRoutingDefaults(cfg *RoutingConfig) {
	if cfg == nil {
		return
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyDeterministicFirst
	}
	if cfg.DeterministicThreshold == 0 {
		cfg.DeterministicThreshold = 0.7
	}
	if cfg.LLMAssistThreshold == 0 {
		cfg.LLMAssistThreshold = 0.4
	}
	if cfg.FoundryDelegationThreshold == 0 {
		cfg.FoundryDelegationThreshold = 0.4
	}
	if cfg.FoundryTimeoutSeconds == 0 {
		cfg.FoundryTimeoutSeconds = 30
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-5.2-instant"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 180
	}
	if cfg.StaticFallbackMessage == "" {
		cfg.StaticFallbackMessage = DefaultStaticFallback
	}
}

// applyRoutingEnv overlays ASKGATE_* environment variables onto the config.
func applyRoutingEnv(cfg *RoutingConfig) {
	if v := os.Getenv("ASKGATE_STRATEGY"); v != "" {
		cfg.Strategy = Strategy(v)
	}
	if v, ok := envBool("ASKGATE_ENABLE_DETERMINISTIC"); ok {
		cfg.EnableDeterministic = &v
	}
	envFloat("ASKGATE_DETERMINISTIC_THRESHOLD", &cfg.DeterministicThreshold)
	envFloat("ASKGATE_LLM_ASSIST_THRESHOLD", &cfg.LLMAssistThreshold)
	envFloat("ASKGATE_FOUNDRY_THRESHOLD", &cfg.FoundryDelegationThreshold)
	if v, ok := envBool("ASKGATE_DELEGATE_TO_FOUNDRY"); ok {
		cfg.DelegateToFoundry = v
	}
	if v := os.Getenv("ASKGATE_FOUNDRY_ENDPOINT"); v != "" {
		cfg.FoundryEndpoint = v
	}
	if v := os.Getenv("ASKGATE_FOUNDRY_AGENT_ID"); v != "" {
		cfg.FoundryAgentID = v
	}
	if v, ok := envBool("ASKGATE_ALLOW_DELEGATE_OVERRIDE"); ok {
		cfg.AllowDelegateOverride = v
	}
	if v := os.Getenv("ASKGATE_DELEGATE_REQUIRED_ROLE"); v != "" {
		cfg.DelegateRequiredRole = v
	}
	if v, ok := envBool("ASKGATE_AB_TEST_ENABLED"); ok {
		cfg.ABTestEnabled = v
	}
	envFloat("ASKGATE_AB_TEST_RATIO", &cfg.ABTestRatio)
	if v := os.Getenv("ASKGATE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("ASKGATE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ASKGATE_LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("ASKGATE_LLM_DEPLOYMENT"); v != "" {
		cfg.LLM.Deployment = v
	}
	if v := os.Getenv("ASKGATE_LLM_API_VERSION"); v != "" {
		cfg.LLM.APIVersion = v
	}
	if v := os.Getenv("ASKGATE_STATIC_FALLBACK"); v != "" {
		cfg.StaticFallbackMessage = v
	}
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envFloat(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*dst = f
}
