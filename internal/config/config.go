// Package config loads controller configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
)

// #region types
// Config is the full controller configuration.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Storage   StorageConfig     `yaml:"storage"`
	Policy    PolicyConfig      `yaml:"policy"`
	Timeouts  TimeoutConfig     `yaml:"timeouts"`
	Extractor ExtractorConfig   `yaml:"extractor"`
	KB        KBConfig          `yaml:"kb"`
	Verify    VerifyConfig      `yaml:"verify"`
	Logging   LoggingConfig     `yaml:"logging"`
	Prompts   map[string]string `yaml:"prompts,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// APIKey guards reset and, when set, every non-health endpoint.
	APIKey string `yaml:"api_key"`
}

type StorageConfig struct {
	// Path is the SQLite file holding records, sessions and transcripts.
	Path string `yaml:"path"`
	// Sessions selects "sqlite" or "memory" session state.
	Sessions      string `yaml:"sessions"`
	TranscriptCap int    `yaml:"transcript_cap"`
}

type PolicyConfig struct {
	AcceptThreshold   float64  `yaml:"accept_threshold"`
	AmbiguousIsYes    bool     `yaml:"ambiguous_is_yes"`
	MaxRetries        int      `yaml:"max_retries"`
	ConfirmFields     []string `yaml:"confirm_fields"`
	SpellOnReject     []string `yaml:"spell_on_reject"`
	QnABudget         int      `yaml:"qna_budget"`
	SnippetChars      int      `yaml:"snippet_chars"`
	MaxPromptChars    int      `yaml:"max_prompt_chars"`
	DefaultListenSec  int      `yaml:"default_listen_sec"`
	LongListenSec     int      `yaml:"long_listen_sec"`
	DefaultConfidence float64  `yaml:"default_confidence"`
	EligibilityQuery  string   `yaml:"eligibility_query"`
}

// TimeoutConfig holds Go duration strings such as "8s".
type TimeoutConfig struct {
	Extract  string `yaml:"extract"`
	Verify   string `yaml:"verify"`
	KB       string `yaml:"kb"`
	Shutdown string `yaml:"shutdown"`
}

type ExtractorConfig struct {
	// Backend is "rules", "grpc" or "genai".
	Backend      string `yaml:"backend"`
	CodecAddr    string `yaml:"codec_addr"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

type KBConfig struct {
	// Backend is "http", "grpc" or "" for none.
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	TopK    int    `yaml:"top_k"`
}

type VerifyConfig struct {
	MapsAPIKey string `yaml:"maps_api_key"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}
// #endregion types

// Extractor backends.
const (
	BackendRules = "rules"
	BackendGRPC  = "grpc"
	BackendGenAI = "genai"
)

// #region defaults
// DefaultConfig returns the built-in configuration. The knowledge-base
// section starts from kb.DefaultConfig, so KB_TIMEOUT applies too.
func DefaultConfig() *Config {
	p := dialogue.DefaultPolicy()
	kbc := kb.DefaultConfig()
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Path:          "intake.db",
			Sessions:      "sqlite",
			TranscriptCap: 300,
		},
		Policy: PolicyConfig{
			AcceptThreshold:   p.AcceptThreshold,
			AmbiguousIsYes:    p.AmbiguousIsYes,
			MaxRetries:        p.MaxRetries,
			ConfirmFields:     fieldNames(p.ConfirmFields),
			SpellOnReject:     fieldNames(p.SpellOnReject),
			QnABudget:         p.QnABudget,
			SnippetChars:      p.SnippetChars,
			MaxPromptChars:    p.MaxPromptChars,
			DefaultListenSec:  p.DefaultListenSec,
			LongListenSec:     p.LongListenSec,
			DefaultConfidence: p.DefaultConfidence,
			EligibilityQuery:  p.EligibilityQuery,
		},
		Timeouts: TimeoutConfig{
			Extract:  p.ExtractTimeout.String(),
			Verify:   p.VerifyTimeout.String(),
			KB:       kbc.Timeout.String(),
			Shutdown: "10s",
		},
		Extractor: ExtractorConfig{Backend: BackendRules},
		KB:        KBConfig{URL: kbc.URL, APIKey: kbc.APIKey, TopK: kbc.TopK},
		Logging:   LoggingConfig{Level: "info"},
	}
}

func fieldNames(set map[intake.Field]bool) []string {
	var out []string
	for _, f := range intake.Extractable {
		if set[f] {
			out = append(out, string(f))
		}
	}
	return out
}
// #endregion defaults

// #region load
// Load reads path over the defaults and applies environment overrides. An
// empty or missing path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flt := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("INTAKE_ADDR", &c.Server.Addr)
	str("ORCH_API_KEY", &c.Server.APIKey)
	str("INTAKE_DB", &c.Storage.Path)
	str("INTAKE_SESSIONS", &c.Storage.Sessions)
	num("TRANSCRIPT_CAP", &c.Storage.TranscriptCap)

	flt("ACCEPT_THRESHOLD", &c.Policy.AcceptThreshold)
	flag("AMBIGUOUS_IS_YES", &c.Policy.AmbiguousIsYes)
	num("MAX_RETRIES", &c.Policy.MaxRetries)
	num("QNA_BUDGET", &c.Policy.QnABudget)
	num("MAX_PROMPT_CHARS", &c.Policy.MaxPromptChars)
	num("DEFAULT_LISTEN", &c.Policy.DefaultListenSec)
	num("LONG_LISTEN", &c.Policy.LongListenSec)

	str("EXTRACTOR_BACKEND", &c.Extractor.Backend)
	str("CODEC_ADDR", &c.Extractor.CodecAddr)
	str("GEMINI_API_KEY", &c.Extractor.GeminiAPIKey)
	str("GEMINI_MODEL", &c.Extractor.GeminiModel)

	str("KB_BACKEND", &c.KB.Backend)
	str("KB_URL", &c.KB.URL)
	str("KB_API_KEY", &c.KB.APIKey)
	num("KB_TOP_K", &c.KB.TopK)
	if c.KB.Backend == "" && c.KB.URL != "" {
		c.KB.Backend = "http"
	}

	str("GOOGLE_MAPS_API_KEY", &c.Verify.MapsAPIKey)
	str("LOG_LEVEL", &c.Logging.Level)
	flag("LOG_JSON", &c.Logging.JSON)
}
// #endregion load

// #region validate
// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Extractor.Backend {
	case BackendRules, BackendGenAI:
	case BackendGRPC:
		if c.Extractor.CodecAddr == "" {
			return errors.New("extractor backend grpc needs codec_addr (CODEC_ADDR)")
		}
	default:
		return fmt.Errorf("unknown extractor backend %q (valid: rules, grpc, genai)", c.Extractor.Backend)
	}
	switch c.KB.Backend {
	case "", "http", BackendGRPC:
	default:
		return fmt.Errorf("unknown kb backend %q", c.KB.Backend)
	}
	switch c.Storage.Sessions {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown session store %q", c.Storage.Sessions)
	}
	p := c.Policy
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 1 {
		return fmt.Errorf("accept_threshold %v outside [0,1]", p.AcceptThreshold)
	}
	if p.MaxRetries < 0 || p.QnABudget < 0 {
		return errors.New("max_retries and qna_budget must not be negative")
	}
	if p.DefaultListenSec <= 0 || p.LongListenSec <= 0 {
		return errors.New("listen windows must be positive")
	}
	for _, names := range [][]string{p.ConfirmFields, p.SpellOnReject} {
		for _, n := range names {
			if _, ok := intake.ParseField(n); !ok {
				return fmt.Errorf("unknown field %q in policy", n)
			}
		}
	}
	for name, d := range map[string]string{
		"extract": c.Timeouts.Extract, "verify": c.Timeouts.Verify,
		"kb": c.Timeouts.KB, "shutdown": c.Timeouts.Shutdown,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("timeouts.%s: %w", name, err)
		}
	}
	return nil
}
// #endregion validate

// #region builders
// DialoguePolicy converts the policy section into engine parameters.
func (c *Config) DialoguePolicy() dialogue.Policy {
	p := dialogue.DefaultPolicy()
	cp := c.Policy
	p.AcceptThreshold = cp.AcceptThreshold
	p.AmbiguousIsYes = cp.AmbiguousIsYes
	p.MaxRetries = cp.MaxRetries
	p.ConfirmFields = fieldSet(cp.ConfirmFields)
	p.SpellOnReject = fieldSet(cp.SpellOnReject)
	p.QnABudget = cp.QnABudget
	if cp.SnippetChars > 0 {
		p.SnippetChars = cp.SnippetChars
	}
	if cp.MaxPromptChars > 0 {
		p.MaxPromptChars = cp.MaxPromptChars
	}
	p.DefaultListenSec = cp.DefaultListenSec
	p.LongListenSec = cp.LongListenSec
	p.DefaultConfidence = cp.DefaultConfidence
	if cp.EligibilityQuery != "" {
		p.EligibilityQuery = cp.EligibilityQuery
	}
	p.ExtractTimeout = duration(c.Timeouts.Extract, p.ExtractTimeout)
	p.VerifyTimeout = duration(c.Timeouts.Verify, p.VerifyTimeout)
	p.KBTimeout = duration(c.Timeouts.KB, p.KBTimeout)
	return p
}

// KBClientConfig returns the knowledge-base client settings.
func (c *Config) KBClientConfig() kb.Config {
	return kb.Config{
		URL:     c.KB.URL,
		APIKey:  c.KB.APIKey,
		TopK:    c.KB.TopK,
		Timeout: duration(c.Timeouts.KB, 6*time.Second),
	}
}

// ShutdownTimeout is how long serve waits for in-flight turns.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Timeouts.Shutdown, 10*time.Second)
}

func fieldSet(names []string) map[intake.Field]bool {
	set := make(map[intake.Field]bool, len(names))
	for _, n := range names {
		if f, ok := intake.ParseField(strings.TrimSpace(n)); ok {
			set[f] = true
		}
	}
	return set
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
// #endregion builders
