package dialogue

import (
	"context"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// #region keywords
// correctionKeywords is matched first-to-last; the first hit wins, so the
// more specific phrases come before the generic ones.
var correctionKeywords = []struct {
	phrases []string
	field   intake.Field
}{
	{[]string{"incident date", "date", "when"}, intake.IncidentDate},
	{[]string{"funding type", "type of funding"}, intake.FundingType},
	{[]string{"funding amount", "amount", "how much", "money"}, intake.FundingAmount},
	{[]string{"attorney", "lawyer", "law firm"}, intake.AttorneyName},
	{[]string{"name"}, intake.FullName},
	{[]string{"phone", "number"}, intake.Phone},
	{[]string{"email", "e mail", "mail"}, intake.Email},
	{[]string{"address", "street", "zip"}, intake.Address},
	{[]string{"details", "what happened", "story", "description"}, intake.InjuryDetails},
	{[]string{"case", "case type", "accident", "injury"}, intake.InjuryType},
	{[]string{"funding"}, intake.FundingType},
}

// matchCorrection resolves free text to the field to reopen. "attorney"
// reopens the attorney details when the caller is represented and the yes/no
// question otherwise.
func matchCorrection(st *session.State, text string) (intake.Field, bool) {
	for _, k := range correctionKeywords {
		if !validate.HasAny(text, k.phrases) {
			continue
		}
		if k.field == intake.AttorneyName && !represented(st) {
			return intake.HasAttorney, true
		}
		return k.field, true
	}
	return "", false
}
// #endregion keywords

// #region correct-select
func (e *Engine) handleCorrectSelect(_ context.Context, t *turn) error {
	st := t.st
	if f, ok := matchCorrection(st, t.utterance); ok {
		return e.selectCorrection(t, f)
	}
	key := session.RetryKey{Stage: session.CorrectSelect}
	if st.Retries.Bump(key, e.policy.MaxRetries) {
		delete(st.Retries, key)
		if err := e.transition(t, session.QnAOffer); err != nil {
			return err
		}
		return e.offerQnA(t)
	}
	t.say(e.prompts.Render(PromptRetry))
	t.say(e.prompts.Render(PromptCorrectSelect))
	return nil
}

// selectCorrection reopens one step in FLOW, leaving every other field as is.
func (e *Engine) selectCorrection(t *turn, f intake.Field) error {
	st := t.st
	s, ok := stepFor(f)
	if !ok {
		return nil
	}
	delete(st.Retries, session.RetryKey{Stage: session.CorrectSelect})
	if err := e.transition(t, session.Flow); err != nil {
		return err
	}
	st.CorrectionTarget = s.field
	st.AwaitingConfirm = ""
	for _, g := range s.fields() {
		delete(st.Confirmed, g)
	}
	delete(st.ConfirmAsked, s.field)
	delete(st.Skipped, s.field)
	delete(st.Retries, session.RetryKey{Stage: session.Flow, Field: s.field})
	if s.field == intake.Address {
		delete(st.Confirmed, intake.State)
	}
	t.say(e.prompts.Render(PromptCorrectAck))
	e.ask(t, s)
	return nil
}
// #endregion correct-select
