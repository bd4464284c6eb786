// Package extract turns one caller utterance into candidate slot values.
package extract

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// Extractor proposes slot values for utterance, biased toward wanted.
type Extractor interface {
	Extract(ctx context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error)

func (f Func) Extract(ctx context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error) {
	return f(ctx, utterance, wanted)
}

var extractable = func() map[intake.Field]bool {
	m := make(map[intake.Field]bool, len(intake.Extractable))
	for _, f := range intake.Extractable {
		m[f] = true
	}
	return m
}()

// #region guard
// Guard bounds an Extractor: it applies a timeout, recovers panics, drops
// fields outside the closed set and clamps confidence into [0,1]. Failures are
// logged and yield an empty map; Guard never returns an error.
type Guard struct {
	Inner   Extractor
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewGuard wraps inner. A nil logger discards.
func NewGuard(inner Extractor, timeout time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{Inner: inner, Timeout: timeout, Logger: logger.Named("extract")}
}

func (g *Guard) Extract(ctx context.Context, utterance string, wanted []intake.Field) (out intake.Candidates, _ error) {
	out = intake.Candidates{}
	if g.Inner == nil || strings.TrimSpace(utterance) == "" {
		return out, nil
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			g.Logger.Error("extractor panicked", zap.Any("panic", r))
			out = intake.Candidates{}
		}
	}()

	raw, err := g.Inner.Extract(ctx, utterance, wanted)
	if err != nil {
		g.Logger.Warn("extractor failed", zap.Error(err))
		return out, nil
	}
	for f, c := range raw {
		if !extractable[f] {
			g.Logger.Debug("dropping unknown field", zap.String("field", string(f)))
			continue
		}
		c.Value = strings.TrimSpace(c.Value)
		if c.Value == "" {
			continue
		}
		c.Confidence = clamp(c.Confidence)
		out[f] = c
	}
	return out, nil
}
// #endregion guard

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
