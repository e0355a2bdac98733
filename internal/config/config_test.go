//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coach-connect/internal/domain/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("FITNESS_API_URL", "http://fitness.local/api")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.AI.OpenAIKey != "sk-test" {
		t.Errorf("expected key from env, got %q", cfg.AI.OpenAIKey)
	}
	if cfg.Fitness.BaseURL != "http://fitness.local/api" {
		t.Errorf("unexpected fitness url %q", cfg.Fitness.BaseURL)
	}
	if cfg.Forwarder.DedupTTL != 10*time.Minute {
		t.Errorf("unexpected dedup ttl %v", cfg.Forwarder.DedupTTL)
	}
	if len(cfg.Flows) != 4 {
		t.Fatalf("expected the 4 built-in flows, got %d", len(cfg.Flows))
	}
}

func TestLoadConfigRequiresAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	p := writeConfig(t, "log:\n  level: debug\n")

	if _, err := LoadConfig(p, false); err == nil {
		t.Fatal("expected an error without any AI key")
	}
	if _, err := LoadConfig(p, true); err != nil {
		t.Fatalf("dev mode runs without keys, got %v", err)
	}
}

func TestLoadConfigFlowOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	p := writeConfig(t, `
server:
  port: 7000
forwarder:
  dedup_ttl: 30s
flows:
  - name: onboarding
    model: gpt-4o-mini
    completion:
      marker: "[[ONBOARDING_COMPLETE]]"
      steps: 8
  - name: direct
    disabled: true
  - name: checkin
    path: /checkin/api
    mode: template
    template: "Check in. {chat_history} user: {input} assistant:"
    stream_protocol: text
`)
	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Forwarder.DedupTTL != 30*time.Second {
		t.Errorf("unexpected dedup ttl %v", cfg.Forwarder.DedupTTL)
	}

	flows, err := cfg.BuildFlows()
	if err != nil {
		t.Fatalf("BuildFlows: %v", err)
	}
	byName := map[string]model.Flow{}
	for _, f := range flows {
		byName[f.Name] = f
	}
	if _, ok := byName["direct"]; ok {
		t.Error("disabled flow must be removed")
	}
	ob := byName["onboarding"]
	if ob.Model != "gpt-4o-mini" {
		t.Errorf("model override not applied: %q", ob.Model)
	}
	if len(ob.Completion.Sentinels) != 4 || ob.Completion.Marker == "" || ob.Completion.Steps != 8 {
		t.Errorf("completion not merged: %+v", ob.Completion)
	}
	if ob.Path != "/chat/api/ex2" || ob.Forward.Endpoint != "/answers" || !ob.Forward.StripNonASCII {
		t.Errorf("built-in fields lost: %+v", ob)
	}
	if !strings.Contains(ob.Template, "{chat_history}") {
		t.Error("built-in template not loaded")
	}
	ci := byName["checkin"]
	if ci.StreamProtocol != model.StreamText || ci.Model != DefaultCoachModel {
		t.Errorf("unexpected custom flow %+v", ci)
	}
}

func TestValidateRejectsDuplicatePaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	p := writeConfig(t, `
flows:
  - name: other
    path: /api/chat
    mode: direct
`)
	if _, err := LoadConfig(p, false); err == nil || !strings.Contains(err.Error(), "already used") {
		t.Fatalf("expected duplicate path error, got %v", err)
	}
}

func TestValidateRejectsTemplateFlowWithoutTemplate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	p := writeConfig(t, `
flows:
  - name: empty
    path: /empty
    mode: template
`)
	if _, err := LoadConfig(p, false); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuiltinFlows(t *testing.T) {
	cfg := &Config{AI: AIConfig{DefaultModel: DefaultCoachModel}, Flows: DefaultFlows()}
	flows, err := cfg.BuildFlows()
	if err != nil {
		t.Fatalf("BuildFlows: %v", err)
	}
	for _, f := range flows {
		if f.StreamProtocol != model.StreamData {
			t.Errorf("%s: expected data protocol by default", f.Name)
		}
		if f.Mode == model.FlowTemplate && !strings.Contains(f.Template, "{input}") {
			t.Errorf("%s: template lacks {input}", f.Name)
		}
	}
	edit := flows[1]
	if !edit.RequireToken || !edit.WorkoutContext || !strings.Contains(edit.Template, "{user_workout}") {
		t.Errorf("unexpected edit flow %+v", edit)
	}
	if flows[2].Forwards() || flows[3].Forwards() {
		t.Error("routine and direct flows never forward")
	}
}
