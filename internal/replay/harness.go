// Package replay drives scripted conversations through the dialogue engine
// and compares each reply against the fixture's expectations.
package replay

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/transcript"
)

// #region types

// Result is the outcome of replaying one turn.
type Result struct {
	SessionID string
	Index     int
	Say       string
	Response  dialogue.Response
	Failures  []string
}

func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns int
	Passed     int
	Failed     int
}

// staticKB answers every query with the fixture's snippets.
type staticKB []kb.Snippet

func (s staticKB) Search(_ context.Context, _ string, k int) ([]kb.Snippet, error) {
	if k > 0 && k < len(s) {
		return s[:k], nil
	}
	return s, nil
}

// #endregion types

// #region replay

// Run replays every call of f against fresh in-memory stores. It stops at
// the first engine error; expectation mismatches are reported per turn.
func Run(ctx context.Context, f *Fixture, logger *zap.Logger) ([]Result, error) {
	recs, err := records.NewStore(":memory:")
	if err != nil {
		return nil, err
	}
	defer recs.Close()

	now := time.Now
	if !f.Now.IsZero() {
		fixed := f.Now.UTC()
		now = func() time.Time { return fixed }
	}
	deps := dialogue.Deps{
		Sessions:   session.NewMemoryStore(),
		Transcript: transcript.NewMemoryLog(0),
		Records:    recs,
		Logger:     logger,
		Now:        now,
	}
	if len(f.Knowledge) > 0 {
		deps.KB = staticKB(f.Knowledge)
	}
	engine, err := dialogue.New(deps, f.Policy.Apply(dialogue.DefaultPolicy()))
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, call := range f.Calls {
		for i, turn := range call.Turns {
			resp, err := engine.Handle(ctx, dialogue.TurnRequest{
				SessionID:    call.SessionID,
				CallerNumber: call.CallerNumber,
				Utterance:    turn.Say,
			})
			if err != nil {
				return results, fmt.Errorf("%s turn %d: %w", call.SessionID, i, err)
			}
			results = append(results, Result{
				SessionID: call.SessionID,
				Index:     i,
				Say:       turn.Say,
				Response:  resp,
				Failures:  Check(turn.Expect, resp),
			})
		}
	}
	return results, nil
}

// Check returns one message per unmet expectation.
func Check(want Expect, got dialogue.Response) []string {
	var fails []string
	if want.Stage != "" && string(got.Stage) != want.Stage {
		fails = append(fails, fmt.Sprintf("stage: want %s, got %s", want.Stage, got.Stage))
	}
	for _, s := range want.PromptContains {
		if !strings.Contains(strings.ToLower(got.NextPrompt), strings.ToLower(s)) {
			fails = append(fails, fmt.Sprintf("prompt %q does not contain %q", got.NextPrompt, s))
		}
	}
	if want.Completed != nil && got.Completed != *want.Completed {
		fails = append(fails, fmt.Sprintf("completed: want %v, got %v", *want.Completed, got.Completed))
	}
	if want.Handoff != nil && got.Handoff != *want.Handoff {
		fails = append(fails, fmt.Sprintf("handoff: want %v, got %v", *want.Handoff, got.Handoff))
	}
	for name, v := range want.Slots {
		f, ok := intake.ParseField(name)
		if !ok {
			fails = append(fails, fmt.Sprintf("unknown slot %q", name))
			continue
		}
		if have, _ := got.Updates.Slots.Get(f); have != v {
			fails = append(fails, fmt.Sprintf("%s: want %q, got %q", name, v, have))
		}
	}
	if want.Citations != nil && !slices.Equal(want.Citations, got.Citations) {
		fails = append(fails, fmt.Sprintf("citations: want %v, got %v", want.Citations, got.Citations))
	}
	if want.ListenSec != 0 && got.ListenTimeoutSec != want.ListenSec {
		fails = append(fails, fmt.Sprintf("listen: want %d, got %d", want.ListenSec, got.ListenTimeoutSec))
	}
	return fails
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalTurns: len(results)}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// #endregion replay
