package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/config"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "intake.db")
	return cfg
}

func TestOpenSQLiteSurvivesReopen(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.Engine.Handle(context.Background(), dialogue.TurnRequest{SessionID: "s1", CallerNumber: "5551234567"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	st, err := b.Sessions.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("session lost across restart: %v", err)
	}
	if st.Stage != session.Flow {
		t.Fatalf("stage = %s", st.Stage)
	}
	turns, err := b.Transcript.List(context.Background(), "s1")
	if err != nil || len(turns) != 1 {
		t.Fatalf("transcript = %v, %v", turns, err)
	}
}

func TestHandlerServesTurns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Sessions = "memory"
	cfg.Prompts = map[string]string{dialogue.PromptAskName: "Who am I speaking with?"}
	a, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/turn", strings.NewReader(`{"session_id":"s1","last_user_utterance":""}`))
	res := httptest.NewRecorder()
	a.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Who am I speaking with?") {
		t.Fatalf("prompt override not applied: %s", res.Body)
	}
}

func TestOpenBackendErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor.Backend = config.BackendGenAI
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("genai without a key should fail")
	}

	cfg = testConfig(t)
	cfg.KB.Backend = config.BackendGRPC
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("grpc kb without codec_addr should fail")
	}
}

func TestSidecarSharedBetweenExtractorAndKB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor.Backend = config.BackendGRPC
	cfg.Extractor.CodecAddr = "localhost:1"
	cfg.KB.Backend = config.BackendGRPC
	a, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.codec == nil || len(a.closers) != 2 {
		t.Fatalf("expected one shared sidecar, closers=%d", len(a.closers))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
