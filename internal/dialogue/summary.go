package dialogue

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// #region read-back
// ReadBack renders every captured field once, grouped in category order:
// identity, contact, address, attorney, case, funding.
func ReadBack(s intake.Slots) string {
	var parts []string
	for _, c := range intake.Categories {
		for _, f := range intake.Extractable {
			if f.Category() != c {
				continue
			}
			v, ok := s.Get(f)
			if !ok {
				continue
			}
			switch f {
			case intake.HasAttorney:
				if v == "true" {
					v = "yes"
				} else {
					v = "no"
				}
			case intake.Phone, intake.AttorneyPhone:
				v = validate.FormatPhone(v)
			}
			parts = append(parts, capitalize(f.Label())+": "+v+".")
		}
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
// #endregion read-back

// #region summary
func (e *Engine) enterSummary(_ context.Context, t *turn) error {
	if err := e.transition(t, session.Summary); err != nil {
		return err
	}
	st := t.st
	st.CorrectionTarget = ""
	st.SummaryRead = true
	st.AwaitingConfirmation = true
	t.say(e.prompts.Render(PromptSummaryIntro))
	t.say(ReadBack(st.Slots))
	t.say(e.prompts.Render(PromptSummaryConfirm))
	t.long = false
	return nil
}

func (e *Engine) handleSummary(ctx context.Context, t *turn) error {
	st := t.st
	if !st.SummaryRead || !st.AwaitingConfirmation {
		return e.enterSummary(ctx, t)
	}
	key := session.RetryKey{Stage: session.Summary}
	switch validate.YesNo(t.utterance) {
	case validate.Yes:
		delete(st.Retries, key)
		return e.complete(t)
	case validate.No:
		delete(st.Retries, key)
		st.SummaryRead = false
		st.AwaitingConfirmation = false
		if err := e.transition(t, session.CorrectSelect); err != nil {
			return err
		}
		if f, ok := matchCorrection(st, t.utterance); ok {
			return e.selectCorrection(t, f)
		}
		t.say(e.prompts.Render(PromptCorrectSelect))
		return nil
	}
	if st.Retries.Bump(key, e.policy.MaxRetries) {
		delete(st.Retries, key)
		return e.complete(t)
	}
	t.say(e.prompts.Render(PromptSummaryRetry))
	return nil
}

// complete is the only path that sets Completed.
func (e *Engine) complete(t *turn) error {
	st := t.st
	st.Completed = true
	st.AwaitingConfirmation = false
	if err := e.transition(t, session.QnAOffer); err != nil {
		return err
	}
	return e.offerQnA(t)
}
// #endregion summary
