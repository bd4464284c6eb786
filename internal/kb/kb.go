// Package kb queries the knowledge base used for caller questions and the
// state-eligibility lookup.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/codec"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// #region types

// Snippet is one ranked knowledge-base hit.
type Snippet struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// Searcher returns up to k snippets for query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}

// Config holds knowledge-base parameters.
type Config struct {
	URL     string
	APIKey  string
	TopK    int
	Timeout time.Duration
}

// #endregion types

// #region config

// DefaultConfig returns default knowledge-base configuration.
// Reads from env vars: KB_URL, KB_API_KEY, KB_TOP_K, KB_TIMEOUT.
func DefaultConfig() Config {
	cfg := Config{
		TopK:    3,
		Timeout: 6 * time.Second,
	}
	cfg.URL = os.Getenv("KB_URL")
	cfg.APIKey = os.Getenv("KB_API_KEY")
	if v := os.Getenv("KB_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopK = n
		}
	}
	if v := os.Getenv("KB_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}

// #endregion config

// #region http-client

// HTTPClient calls a search service exposing POST {url}/search.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient returns a client for cfg.URL.
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *HTTPClient) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if c.cfg.URL == "" {
		return nil, nil
	}
	if k <= 0 {
		k = c.cfg.TopK
	}
	body, err := json.Marshal(map[string]any{"q": query, "k": k})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.URL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("kb search: status %d", resp.StatusCode)
	}

	var out struct {
		Results []Snippet `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode kb response: %w", err)
	}
	if len(out.Results) > k {
		out.Results = out.Results[:k]
	}
	return out.Results, nil
}

// #endregion http-client

// #region codec-searcher

// CodecSearcher answers through the inference sidecar's Search RPC.
type CodecSearcher struct {
	Client *codec.CodecClient
}

func (s CodecSearcher) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	results, err := s.Client.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	snips := make([]Snippet, 0, len(results))
	for _, r := range results {
		snips = append(snips, Snippet{Title: r.Title, URL: r.URL, Text: r.Text})
	}
	return snips, nil
}

// #endregion codec-searcher

// #region format

// MaxAnswerSnippets is the number of snippets concatenated into an answer.
const MaxAnswerSnippets = 3

// FormatAnswer joins up to three snippets, each capped at maxChars runes, and
// returns the answer with 1-based citation numbers.
func FormatAnswer(snips []Snippet, maxChars int) (string, []int) {
	var parts []string
	var cites []int
	for _, s := range snips {
		if len(parts) == MaxAnswerSnippets {
			break
		}
		text := strings.Join(strings.Fields(s.Text), " ")
		if text == "" {
			continue
		}
		parts = append(parts, truncate(text, maxChars))
		cites = append(cites, len(parts))
	}
	return strings.Join(parts, " "), cites
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// #endregion format

// #region eligibility

var denyPhrases = []string{
	"do not serve", "don't serve", "does not serve", "doesn't serve",
	"not available in", "not eligible", "cannot serve", "can't serve",
	"unable to serve", "not licensed", "no longer serve", "not offered in",
	"ineligible", "unavailable", "not serve",
}

var allowPhrases = []string{
	"we serve", "serve clients", "serves clients", "available in", "eligible",
	"we operate in", "licensed in", "offered in", "we fund",
}

// Eligibility reads a coarse yes/no/unknown from snippet text. Deny language
// wins over allow language. Phrases match on word boundaries, so
// "ineligible" never reads as "eligible". note is the snippet that decided it.
func Eligibility(snips []Snippet) (verdict string, note string) {
	for _, s := range snips {
		if validate.HasAny(s.Text, denyPhrases) {
			return "no", truncate(strings.Join(strings.Fields(s.Text), " "), 180)
		}
	}
	for _, s := range snips {
		if validate.HasAny(s.Text, allowPhrases) {
			return "yes", truncate(strings.Join(strings.Fields(s.Text), " "), 180)
		}
	}
	return "unknown", ""
}

// #endregion eligibility
