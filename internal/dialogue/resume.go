package dialogue

import (
	"context"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// #region entry
// handleEntry offers to resume the caller's latest application, or greets.
// The entry utterance itself is not parsed for slots.
func (e *Engine) handleEntry(ctx context.Context, t *turn) error {
	st := t.st
	if st.CallerNumber != "" {
		app, err := e.records.LatestByCaller(ctx, st.CallerNumber)
		switch {
		case err != nil:
			e.log.Warn("resume lookup failed", zap.String("session", st.SessionID), zap.Error(err))
		case app != nil && app.SessionID != st.SessionID:
			if err := e.transition(t, session.ResumeChoice); err != nil {
				return err
			}
			st.ResumeFrom = app.SessionID
			st.ResumeStatus = string(app.Status)
			if app.Status == records.StatusCompleted {
				t.say(e.prompts.Render(PromptResumeCompleted))
			} else {
				t.say(e.prompts.Render(PromptResumePending))
			}
			return nil
		}
	}
	return e.greet(ctx, t)
}

func (e *Engine) greet(ctx context.Context, t *turn) error {
	if err := e.transition(t, session.Greeting); err != nil {
		return err
	}
	if err := e.transition(t, session.Flow); err != nil {
		return err
	}
	t.say(e.prompts.Render(PromptIntro))
	return e.advance(ctx, t)
}
// #endregion entry

// #region resume-choice
type resumeChoice int

const (
	choiceNone resumeChoice = iota
	choiceContinue
	choiceModify
	choiceNew
)

var (
	modifyWords   = []string{"modify", "change", "update", "edit", "correct", "fix"}
	newWords      = []string{"new", "start over", "fresh", "restart", "another", "different", "from scratch"}
	continueWords = []string{"continue", "resume", "pick up", "keep going", "finish", "same", "existing", "that one", "yes"}
)

func classifyResume(text string) resumeChoice {
	switch {
	case validate.HasAny(text, modifyWords):
		return choiceModify
	case validate.HasAny(text, newWords):
		return choiceNew
	case validate.HasAny(text, continueWords):
		return choiceContinue
	}
	return choiceNone
}

func (e *Engine) handleResumeChoice(ctx context.Context, t *turn) error {
	st := t.st
	choice := classifyResume(t.utterance)
	if choice == choiceNone {
		key := session.RetryKey{Stage: session.ResumeChoice}
		if !st.Retries.Bump(key, e.policy.MaxRetries) {
			t.say(e.prompts.Render(PromptResumeClarify))
			return nil
		}
		delete(st.Retries, key)
		choice = choiceContinue
	}
	if choice == choiceNew {
		st.ResumeFrom, st.ResumeStatus = "", ""
		return e.greet(ctx, t)
	}

	app, err := e.records.GetBySession(ctx, st.ResumeFrom)
	if err != nil {
		e.log.Warn("resume load failed", zap.String("session", st.SessionID),
			zap.String("record", st.ResumeFrom), zap.Error(err))
		return e.greet(ctx, t)
	}
	hydrate(st, app)

	if choice == choiceModify {
		if err := e.transition(t, session.CorrectSelect); err != nil {
			return err
		}
		t.say(e.prompts.Render(PromptCorrectSelect))
		return nil
	}
	if err := e.transition(t, session.Flow); err != nil {
		return err
	}
	t.say(e.prompts.Render(PromptResumeAck))
	return e.advance(ctx, t)
}

// hydrate loads a stored application into st. Stored values count as
// confirmed; later turns write back into the same record. A best phone that
// only mirrors the phone is the store's fallback, not a caller answer.
func hydrate(st *session.State, app *records.Application) {
	st.Slots = app.Slots
	st.Annotations = app.Annotations
	if best, ok := st.Slots.Get(intake.BestPhone); ok {
		if phone, _ := st.Slots.Get(intake.Phone); best == phone {
			st.Slots.Clear(intake.BestPhone)
		}
	}
	for _, f := range intake.Extractable {
		if st.Slots.Has(f) {
			st.Confidences[f] = 1
			st.Confirmed[f] = true
			st.ConfirmAsked[f] = true
		}
	}
	if app.AddressSkipped {
		st.Skipped[intake.Address] = true
	}
	if app.CallerNumber != "" && st.CallerNumber == "" {
		st.CallerNumber = app.CallerNumber
	}
	st.RecordKey = app.SessionID
}
// #endregion resume-choice
