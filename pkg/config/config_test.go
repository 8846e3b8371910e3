package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	doc := `app:
  name: claimpilot
providers:
  openai:
    api_key: test-key
    model: gpt-4o-mini
    enabled: true
workflow:
  mode: tools
  max_steps: 5
notifiers:
  telegram:
    token: tg-token
    chat_id: 42
    enabled: true
  discord:
    token: dc-token
    enabled: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Workflow.Mode != "tools" || cfg.Workflow.MaxSteps != 5 {
		t.Errorf("workflow config: %+v", cfg.Workflow)
	}

	// Defaults fill the gaps.
	if cfg.Workflow.EntryStep != "01-extract-serial" {
		t.Errorf("EntryStep default missing: %q", cfg.Workflow.EntryStep)
	}
	if cfg.Warranty.Source != "sqlite" || cfg.Warranty.DBPath != "warranty.db" {
		t.Errorf("warranty defaults missing: %+v", cfg.Warranty)
	}
	if cfg.App.InstructionsDir != "./instructions" {
		t.Errorf("InstructionsDir default missing: %q", cfg.App.InstructionsDir)
	}

	name, p := cfg.GetDefaultProvider()
	if name != "openai" || p.APIKey != "test-key" {
		t.Errorf("default provider: %s %+v", name, p)
	}

	tg, ok := cfg.GetNotifier("telegram")
	if !ok || tg.ChatID != 42 {
		t.Errorf("telegram notifier: %+v ok=%v", tg, ok)
	}
	if _, ok := cfg.GetNotifier("discord"); ok {
		t.Error("disabled notifier must not be returned")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
