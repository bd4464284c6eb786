package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intake.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultsMatchEnginePolicy(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.DialoguePolicy()
	if diff := cmp.Diff(dialogue.DefaultPolicy(), got); diff != "" {
		t.Fatalf("policy drift (-want +got):\n%s", diff)
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Extractor.Backend != BackendRules {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestYAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  api_key: from-file
policy:
  max_retries: 4
  ambiguous_is_yes: false
  confirm_fields: [phone, email]
timeouts:
  kb: 2s
prompts:
  ASK_NAME: "Who am I speaking with?"
`)
	t.Setenv("ORCH_API_KEY", "from-env")
	t.Setenv("LONG_LISTEN", "20")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.APIKey != "from-env" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	p := cfg.DialoguePolicy()
	if p.MaxRetries != 4 || p.AmbiguousIsYes || p.LongListenSec != 20 || p.KBTimeout != 2*time.Second {
		t.Fatalf("policy = %+v", p)
	}
	want := map[intake.Field]bool{intake.Phone: true, intake.Email: true}
	if diff := cmp.Diff(want, p.ConfirmFields); diff != "" {
		t.Fatalf("confirm fields (-want +got):\n%s", diff)
	}
	if p.DefaultListenSec != 7 || p.QnABudget != 3 {
		t.Fatal("unset keys must keep their defaults")
	}
	if cfg.Prompts["ASK_NAME"] != "Who am I speaking with?" {
		t.Fatalf("prompts = %v", cfg.Prompts)
	}
}

func TestKBBackendInferredFromURL(t *testing.T) {
	t.Setenv("KB_URL", "http://kb.local")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.KB.Backend != "http" || cfg.KBClientConfig().URL != "http://kb.local" {
		t.Fatalf("kb = %+v", cfg.KB)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"unknown backend": "extractor:\n  backend: magic\n",
		"grpc no addr":    "extractor:\n  backend: grpc\n",
		"bad threshold":   "policy:\n  accept_threshold: 1.5\n",
		"bad field":       "policy:\n  confirm_fields: [shoe_size]\n",
		"bad duration":    "timeouts:\n  verify: soon\n",
		"bad sessions":    "storage:\n  sessions: redis\n",
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("malformed yaml should fail")
	}
}
