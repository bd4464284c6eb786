package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/extract"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/verify"
)

// #region steps
// step is one question of the collection flow. A step with a group is
// captured once any member has a value; confirmation state lives on field.
type step struct {
	field intake.Field
	group []intake.Field
	ask   string
	long  bool
	when  func(*session.State) bool
}

var attorneyGroup = []intake.Field{
	intake.AttorneyName, intake.AttorneyPhone, intake.LawFirm, intake.LawFirmAddress,
}

var flowSteps = []step{
	{field: intake.FullName, ask: PromptAskName},
	{field: intake.Phone, ask: PromptAskPhone},
	{field: intake.Email, ask: PromptAskEmail},
	{field: intake.Address, ask: PromptAskAddress, long: true},
	{field: intake.HasAttorney, ask: PromptAskAttorneyYN},
	{field: intake.AttorneyName, group: attorneyGroup, ask: PromptAskAttorneyInfo, long: true, when: represented},
	{field: intake.InjuryType, ask: PromptAskCaseType},
	{field: intake.InjuryDetails, ask: PromptAskInjuryDetails, long: true},
	{field: intake.IncidentDate, ask: PromptAskIncidentDate},
	{field: intake.FundingType, ask: PromptAskFundingType},
	{field: intake.FundingAmount, ask: PromptAskFundingAmount},
}

func represented(st *session.State) bool {
	return st.Slots.HasAttorney != nil && *st.Slots.HasAttorney
}

func (s step) fields() []intake.Field {
	if len(s.group) > 0 {
		return s.group
	}
	return []intake.Field{s.field}
}

func (s step) applies(st *session.State) bool {
	return s.when == nil || s.when(st)
}

func (s step) captured(st *session.State) bool {
	for _, f := range s.fields() {
		if st.Slots.Has(f) {
			return true
		}
	}
	return false
}

func (s step) has(f intake.Field) bool {
	for _, g := range s.fields() {
		if g == f {
			return true
		}
	}
	return false
}

func stepFor(f intake.Field) (step, bool) {
	p := primaryOf(f)
	for _, s := range flowSteps {
		if s.field == p {
			return s, true
		}
	}
	return step{}, false
}

// primaryOf maps a field to the field its confirmation state is kept on.
func primaryOf(f intake.Field) intake.Field {
	for _, g := range attorneyGroup {
		if g == f {
			return intake.AttorneyName
		}
	}
	return f
}
// #endregion steps

// #region flow
func (e *Engine) handleGreeting(ctx context.Context, t *turn) error {
	if err := e.transition(t, session.Flow); err != nil {
		return err
	}
	return e.handleFlow(ctx, t)
}

// currentStep is the correction target or the first open step.
func (e *Engine) currentStep(st *session.State) (step, bool) {
	if st.CorrectionTarget != "" {
		return stepFor(st.CorrectionTarget)
	}
	for _, s := range flowSteps {
		if s.applies(st) && !s.captured(st) && !st.Skipped[s.field] {
			return s, true
		}
	}
	return step{}, false
}

func (e *Engine) handleFlow(ctx context.Context, t *turn) error {
	st := t.st
	if st.AwaitingConfirm != "" {
		return e.resolveConfirm(ctx, t)
	}
	cur, ok := e.currentStep(st)
	if !ok {
		return e.advance(ctx, t)
	}

	gotCur, gotAny := e.collect(ctx, t, cur)
	key := session.RetryKey{Stage: session.Flow, Field: cur.field}
	switch {
	case gotCur:
		delete(st.Retries, key)
		st.CorrectionTarget = ""
	case gotAny:
	case cur.field == intake.Address && validate.Skip(t.utterance):
		delete(st.Retries, key)
		st.Skipped[intake.Address] = true
		st.Annotations.AddressSkipped = true
		st.CorrectionTarget = ""
		t.say(e.prompts.Render(PromptAddressSkipped))
	default:
		if st.Retries.Bump(key, e.policy.MaxRetries) {
			e.log.Info("retries exhausted, moving on",
				zap.String("session", st.SessionID), zap.String("field", string(cur.field)))
			e.giveUp(st, cur)
			t.say(e.prompts.Render(PromptMoveOn))
		} else {
			t.say(e.prompts.Render(PromptRetry))
		}
	}
	return e.advance(ctx, t)
}

// wanted lists the fields the extractor is asked for this turn.
func wanted(cur step) []intake.Field {
	out := append([]intake.Field(nil), cur.fields()...)
	if cur.field == intake.Address {
		out = append(out, intake.State)
	}
	return out
}

// collect merges extractor candidates, then falls back to the validators for
// the current step. It reports whether the current step and any field at all
// were captured.
func (e *Engine) collect(ctx context.Context, t *turn, cur step) (gotCur, gotAny bool) {
	st := t.st
	cands, _ := e.extractor.Extract(ctx, t.utterance, wanted(cur))
	for _, f := range intake.Extractable {
		c, ok := cands[f]
		if !ok {
			continue
		}
		v := extract.Canonical(f, c.Value, st.CallerNumber, e.now())
		if e.merge(t, f, v, c.Confidence) {
			gotAny = true
			gotCur = gotCur || cur.has(f)
		}
	}
	if gotCur || t.utterance == "" {
		return gotCur, gotAny
	}

	reopen := st.CorrectionTarget != ""
	try := func(f intake.Field) bool {
		if st.Slots.Has(f) && !reopen {
			return false
		}
		v, conf, ok := extract.Parse(f, t.utterance, st.CallerNumber, e.now())
		return ok && e.merge(t, f, v, conf)
	}
	if cur.field == intake.AttorneyName {
		for _, f := range []intake.Field{intake.AttorneyPhone, intake.AttorneyName} {
			gotCur = try(f) || gotCur
		}
		if !gotCur {
			gotCur = try(intake.LawFirm)
		}
	} else {
		for _, f := range cur.fields() {
			gotCur = try(f) || gotCur
		}
		if cur.field == intake.Address && gotCur {
			try(intake.State)
		}
	}
	return gotCur, gotAny || gotCur
}

// merge stores a candidate unless its step is already confirmed. It reports
// whether the field now holds the value.
func (e *Engine) merge(t *turn, f intake.Field, v string, conf float64) bool {
	st := t.st
	p := primaryOf(f)
	if st.Confirmed[p] {
		return false
	}
	if f == intake.HasAttorney {
		switch validate.YesNo(v) {
		case validate.Yes:
			v = "true"
		case validate.No:
			v = "false"
		default:
			if v != "true" && v != "false" {
				return false
			}
		}
	}
	old, had := st.Slots.Get(f)
	if had && old == v {
		t.capture(conf)
		return true
	}

	st.Slots.Set(f, v)
	st.Confidences[f] = conf
	delete(st.ConfirmAsked, p)
	t.capture(conf)

	switch f {
	case intake.Address:
		delete(st.Skipped, intake.Address)
		st.Annotations.AddressSkipped = false
		resetAddress(st)
	case intake.Phone:
		if best, ok := st.Slots.Get(intake.BestPhone); ok && had && best == old {
			st.Forget(intake.BestPhone)
		}
	case intake.HasAttorney:
		if v == "false" {
			forgetAttorney(st)
		}
	case intake.AttorneyName, intake.AttorneyPhone, intake.LawFirm, intake.LawFirmAddress:
		st.Annotations.AttorneyVerified = false
	}
	return true
}

func resetAddress(st *session.State) {
	st.Forget(intake.State)
	st.Annotations.AddressNorm = ""
	st.Annotations.AddressVerified = false
	st.Annotations.StateEligible = ""
	st.Annotations.StateEligibilityNote = ""
}

func forgetAttorney(st *session.State) {
	for _, f := range attorneyGroup {
		st.Forget(f)
	}
	st.Annotations.AttorneyVerified = false
}

// giveUp forces progress past a step. A reopened step keeps its previous
// value; an empty one is marked skipped.
func (e *Engine) giveUp(st *session.State, s step) {
	st.CorrectionTarget = ""
	if s.captured(st) {
		for _, f := range s.fields() {
			if st.Slots.Has(f) {
				st.Confirmed[f] = true
			}
		}
		return
	}
	st.Skipped[s.field] = true
}
// #endregion flow

// #region advance
// advance asks the next question: the correction target, then the first open
// step, then any pending confirmation. With nothing left it enters SUMMARY.
func (e *Engine) advance(ctx context.Context, t *turn) error {
	st := t.st
	if st.CorrectionTarget != "" {
		if s, ok := stepFor(st.CorrectionTarget); ok {
			e.ask(t, s)
			return nil
		}
		st.CorrectionTarget = ""
	}
	for _, s := range flowSteps {
		if !s.applies(st) {
			continue
		}
		if !s.captured(st) {
			if st.Skipped[s.field] {
				continue
			}
			e.ask(t, s)
			return nil
		}
		if st.Confirmed[s.field] {
			continue
		}
		if e.needsConfirm(st, s) {
			e.askConfirm(t, s)
			return nil
		}
		e.accept(ctx, t, s)
	}
	return e.enterSummary(ctx, t)
}

func (e *Engine) ask(t *turn, s step) {
	t.say(e.prompts.Render(s.ask))
	t.long = s.long
}

// needsConfirm is true once per capture for policy fields and for values
// below the acceptance threshold.
func (e *Engine) needsConfirm(st *session.State, s step) bool {
	if st.ConfirmAsked[s.field] {
		return false
	}
	if e.policy.ConfirmFields[s.field] {
		return true
	}
	for _, f := range s.fields() {
		if st.Slots.Has(f) && st.Confidences[f] < e.policy.AcceptThreshold {
			return true
		}
	}
	return false
}
// #endregion advance

// #region confirm
func (e *Engine) askConfirm(t *turn, s step) {
	t.st.AwaitingConfirm = s.field
	t.st.ConfirmAsked[s.field] = true
	t.say(e.confirmPrompt(t.st, s))
	t.long = false
}

func (e *Engine) confirmPrompt(st *session.State, s step) string {
	v, _ := st.Slots.Get(s.field)
	switch s.field {
	case intake.FullName:
		return e.prompts.Render(PromptConfirmName, "name", v, "spelled", validate.SpellName(v))
	case intake.Phone:
		return e.prompts.Render(PromptConfirmPhone, "phone", validate.FormatPhone(v))
	case intake.Email:
		return e.prompts.Render(PromptConfirmEmail, "email", v, "spelled", validate.SpellEmail(v))
	case intake.Address:
		return e.prompts.Render(PromptConfirmAddress, "address", v)
	case intake.AttorneyName:
		return e.prompts.Render(PromptConfirmAttorney, "summary", attorneySummary(st.Slots))
	case intake.InjuryDetails:
		return e.prompts.Render(PromptConfirmInjuryDetails, "details", v)
	case intake.HasAttorney:
		answer := "do not"
		if represented(st) {
			answer = "do"
		}
		return e.prompts.Render(PromptConfirmHasAttorney, "answer", answer)
	}
	return e.prompts.Render(PromptConfirmField, "label", s.field.Label(), "value", v)
}

func attorneySummary(s intake.Slots) string {
	var parts []string
	for _, f := range attorneyGroup {
		v, ok := s.Get(f)
		if !ok {
			continue
		}
		if f == intake.AttorneyPhone {
			v = validate.FormatPhone(v)
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

// resolveConfirm classifies the reply to a pending confirmation.
func (e *Engine) resolveConfirm(ctx context.Context, t *turn) error {
	st := t.st
	s, ok := stepFor(st.AwaitingConfirm)
	st.AwaitingConfirm = ""
	if !ok {
		return e.advance(ctx, t)
	}
	key := session.RetryKey{Stage: session.Flow, Field: s.field}

	ans := validate.YesNo(t.utterance)
	if ans == validate.Unknown {
		if e.policy.AmbiguousIsYes || st.Retries.Bump(key, e.policy.MaxRetries) {
			ans = validate.Yes
		} else {
			st.AwaitingConfirm = s.field
			t.say(e.prompts.Render(PromptConfirmRetry))
			t.say(e.confirmPrompt(st, s))
			return nil
		}
	}

	if ans == validate.Yes {
		delete(st.Retries, key)
		e.accept(ctx, t, s)
		return e.advance(ctx, t)
	}

	for _, f := range s.fields() {
		st.Forget(f)
	}
	switch s.field {
	case intake.Address:
		resetAddress(st)
	case intake.HasAttorney:
		forgetAttorney(st)
	case intake.AttorneyName:
		st.Annotations.AttorneyVerified = false
	}
	if st.Retries.Bump(key, e.policy.MaxRetries) {
		e.giveUp(st, s)
		t.say(e.prompts.Render(PromptMoveOn))
		return e.advance(ctx, t)
	}
	t.say(e.prompts.Render(PromptRejectAck))
	if e.policy.SpellOnReject[s.field] {
		switch s.field {
		case intake.FullName:
			t.say(e.prompts.Render(PromptNameSpell))
		case intake.Email:
			t.say(e.prompts.Render(PromptEmailSpell))
		default:
			e.ask(t, s)
		}
		t.long = true
		return nil
	}
	return e.advance(ctx, t)
}
// #endregion confirm

// #region accept
// accept marks a step confirmed and fires its side effects.
func (e *Engine) accept(ctx context.Context, t *turn, s step) {
	st := t.st
	for _, f := range s.fields() {
		if st.Slots.Has(f) {
			st.Confirmed[f] = true
		}
	}
	switch s.field {
	case intake.Address:
		e.checkAddress(ctx, t)
	case intake.AttorneyName:
		e.checkAttorney(ctx, t)
	}
}

func (e *Engine) checkAddress(ctx context.Context, t *turn) {
	st := t.st
	addr, ok := st.Slots.Get(intake.Address)
	if !ok {
		return
	}
	var (
		res verify.AddressResult
		err error
	)
	boundedCall(ctx, e.policy.VerifyTimeout, func(ctx context.Context) {
		res, err = e.addresses.VerifyAddress(ctx, addr)
	})
	switch {
	case errors.Is(err, verify.ErrNotConfigured):
	case err != nil:
		e.log.Warn("address verification failed", zap.String("session", st.SessionID), zap.Error(err))
	default:
		st.Annotations.AddressVerified = res.Verified
		if res.Normalized != "" {
			st.Annotations.AddressNorm = res.Normalized
		}
		if !res.Verified {
			t.say(e.prompts.Render(PromptAddressVerifyFail))
		}
	}

	code := e.stateFor(st, res)
	if code == "" {
		st.Annotations.StateEligible = intake.EligibilityUnknown
		return
	}
	e.checkEligibility(ctx, t, code)
}

// stateFor settles the state code from verification, the captured state, or
// the address text, in that order.
func (e *Engine) stateFor(st *session.State, res verify.AddressResult) string {
	if st.Confirmed[intake.State] {
		v, _ := st.Slots.Get(intake.State)
		return v
	}
	code := res.State
	if code == "" {
		code, _ = st.Slots.Get(intake.State)
	}
	if code == "" {
		addr, _ := st.Slots.Get(intake.Address)
		code, _ = validate.StateCode(addr)
	}
	if code == "" && st.Annotations.AddressNorm != "" {
		code, _ = validate.StateCode(st.Annotations.AddressNorm)
	}
	if code == "" {
		return ""
	}
	st.Slots.Set(intake.State, code)
	if _, ok := st.Confidences[intake.State]; !ok {
		st.Confidences[intake.State] = extract.StrictConfidence
	}
	st.Confirmed[intake.State] = true
	return code
}

func (e *Engine) checkEligibility(ctx context.Context, t *turn, code string) {
	st := t.st
	name := validate.StateName(code)
	var (
		snips []kb.Snippet
		err   error
	)
	boundedCall(ctx, e.policy.KBTimeout, func(ctx context.Context) {
		snips, err = e.kb.Search(ctx, fmt.Sprintf(e.policy.EligibilityQuery, name), kb.MaxAnswerSnippets)
	})
	if err != nil {
		e.log.Warn("eligibility lookup failed", zap.String("session", st.SessionID), zap.Error(err))
	}
	verdict, note := kb.Eligibility(snips)
	st.Annotations.StateEligible = intake.Eligibility(verdict)
	st.Annotations.StateEligibilityNote = note
	switch st.Annotations.StateEligible {
	case intake.EligibilityYes:
		t.say(e.prompts.Render(PromptStateEligible, "state", name))
	case intake.EligibilityNo:
		t.say(e.prompts.Render(PromptStateIneligible, "state", name))
	}
}

func (e *Engine) checkAttorney(ctx context.Context, t *turn) {
	st := t.st
	a := verify.Attorney{}
	a.Name, _ = st.Slots.Get(intake.AttorneyName)
	a.Firm, _ = st.Slots.Get(intake.LawFirm)
	a.Phone, _ = st.Slots.Get(intake.AttorneyPhone)
	a.Address, _ = st.Slots.Get(intake.LawFirmAddress)
	var (
		ok  bool
		err error
	)
	boundedCall(ctx, e.policy.VerifyTimeout, func(ctx context.Context) {
		ok, err = e.attorneys.VerifyAttorney(ctx, a)
	})
	switch {
	case errors.Is(err, verify.ErrNotConfigured):
	case err != nil:
		e.log.Warn("attorney verification failed", zap.String("session", st.SessionID), zap.Error(err))
	default:
		st.Annotations.AttorneyVerified = ok
	}
}
// #endregion accept
