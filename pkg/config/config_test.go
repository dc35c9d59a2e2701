package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" {
		t.Fatalf("expected env API keys to be used")
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %s", cfg.ListenAddr)
	}
}

func TestConfigFileAPIKeysAsFallback(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	configDir := filepath.Join(home, ".askgate")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  openai: file-openai\nlisten_addr: \":9090\"\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIAPIKey != "file-openai" {
		t.Fatalf("expected file API key, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected file listen addr, got %s", cfg.ListenAddr)
	}
}

func TestRoutingDefaults(t *testing.T) {
	cfg := DefaultRoutingConfig()

	if cfg.Strategy != StrategyDeterministicFirst {
		t.Fatalf("unexpected default strategy %q", cfg.Strategy)
	}
	if cfg.DeterministicThreshold != 0.7 || cfg.LLMAssistThreshold != 0.4 {
		t.Fatalf("unexpected default thresholds: %.2f / %.2f",
			cfg.DeterministicThreshold, cfg.LLMAssistThreshold)
	}
	if !cfg.DeterministicEnabled() {
		t.Fatalf("deterministic routing should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestRoutingValidateRejectsBadThresholds(t *testing.T) {
	cfg := DefaultRoutingConfig()
	cfg.LLMAssistThreshold = 0.9
	cfg.DeterministicThreshold = 0.5

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected threshold ordering to be rejected")
	}
}

func TestRoutingValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := DefaultRoutingConfig()
	cfg.Strategy = "coin_flip"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown strategy to be rejected")
	}
}

func TestLLMTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  LLMTarget
		wantErr bool
	}{
		{"plain provider", LLMTarget{Provider: "openai", Model: "gpt-5.2-instant"}, false},
		{"full azure target", LLMTarget{Endpoint: "https://gw.example.com", Deployment: "askgate-prod", APIVersion: "2024-06-01"}, false},
		{"deployment without endpoint", LLMTarget{Deployment: "askgate-prod"}, true},
		{"api version alone", LLMTarget{APIVersion: "2024-06-01"}, true},
		{"endpoint alone", LLMTarget{Endpoint: "https://gw.example.com"}, false},
	}
	for _, tt := range tests {
		err := tt.target.Validate()
		if tt.wantErr && err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
	}
}

func TestRoutingValidateRejectsPartialLLMTarget(t *testing.T) {
	cfg := DefaultRoutingConfig()
	cfg.LLM.Deployment = "askgate-prod"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected partial llm target to be rejected")
	}
}

func TestLoadRoutingConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	data := []byte(`strategy: hybrid
deterministic_threshold: 0.8
llm_assist_threshold: 0.3
delegate_to_foundry: true
foundry_endpoint: "https://foundry.example.com"
foundry_agent_id: "agent-7"
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write routing config: %v", err)
	}

	cfg, err := LoadRoutingConfig(path)
	if err != nil {
		t.Fatalf("load routing config: %v", err)
	}
	if cfg.Strategy != StrategyHybrid {
		t.Fatalf("expected hybrid strategy, got %q", cfg.Strategy)
	}
	if !cfg.DelegateToFoundry || cfg.FoundryEndpoint == "" {
		t.Fatalf("foundry settings not loaded: %+v", cfg)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("expected anthropic provider, got %q", cfg.LLM.Provider)
	}
	if cfg.FoundryTimeoutSeconds != 30 {
		t.Fatalf("expected default foundry timeout, got %d", cfg.FoundryTimeoutSeconds)
	}
}

func TestRoutingEnvOverrides(t *testing.T) {
	t.Setenv("ASKGATE_STRATEGY", "llm_only")
	t.Setenv("ASKGATE_DETERMINISTIC_THRESHOLD", "0.9")
	t.Setenv("ASKGATE_DELEGATE_TO_FOUNDRY", "true")
	t.Setenv("ASKGATE_FOUNDRY_ENDPOINT", "https://env.example.com")

	cfg := DefaultRoutingConfig()
	if cfg.Strategy != StrategyLLMOnly {
		t.Fatalf("expected env strategy, got %q", cfg.Strategy)
	}
	if cfg.DeterministicThreshold != 0.9 {
		t.Fatalf("expected env threshold, got %.2f", cfg.DeterministicThreshold)
	}
	if !cfg.DelegateToFoundry || cfg.FoundryEndpoint != "https://env.example.com" {
		t.Fatalf("expected env foundry settings")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
