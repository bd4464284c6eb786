package dialogue

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
)

func TestReadBackOrderAndCoverage(t *testing.T) {
	var s intake.Slots
	vals := map[intake.Field]string{
		intake.FullName:       "Jane Doe",
		intake.Phone:          "5551234567",
		intake.Email:          "jane@example.com",
		intake.Address:        "12 Main St, Austin TX 78701",
		intake.State:          "TX",
		intake.HasAttorney:    "true",
		intake.AttorneyName:   "John Roe",
		intake.AttorneyPhone:  "5552223333",
		intake.LawFirm:        "Roe Law Group",
		intake.LawFirmAddress: "10 Court St",
		intake.InjuryType:     "auto accident",
		intake.InjuryDetails:  "rear ended at a red light",
		intake.IncidentDate:   "2026-01-05",
		intake.FundingType:    "fresh",
		intake.FundingAmount:  "$2,000",
	}
	for f, v := range vals {
		s.Set(f, v)
	}
	want := "Name: Jane Doe. Phone: 555-123-4567. Email: jane@example.com. " +
		"Address: 12 Main St, Austin TX 78701. State: TX. " +
		"Attorney: yes. Attorney name: John Roe. Attorney phone: 555-222-3333. " +
		"Law firm: Roe Law Group. Law firm address: 10 Court St. " +
		"Case type: auto accident. What happened: rear ended at a red light. Incident date: 2026-01-05. " +
		"Funding type: fresh. Funding amount: $2,000."
	got := ReadBack(s)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("read-back (-want +got):\n%s", diff)
	}
	for _, v := range []string{"Jane Doe", "jane@example.com", "John Roe", "Roe Law Group", "$2,000", "2026-01-05"} {
		if n := strings.Count(got, v); n != 1 {
			t.Errorf("%q mentioned %d times", v, n)
		}
	}

	s.Clear(intake.Email)
	if strings.Contains(ReadBack(s), "Email") {
		t.Fatal("empty fields are not read back")
	}
	if ReadBack(intake.Slots{}) != "" {
		t.Fatal("empty record reads back as nothing")
	}
}

func TestSummaryNoWithFieldJumpsToCorrection(t *testing.T) {
	h := newHarness(t)
	h.put(t, seeded("sj"))
	h.send(t, "sj", "")
	r := h.send(t, "sj", "no, the email is wrong")
	if r.Stage != session.Flow {
		t.Fatalf("stage = %s", r.Stage)
	}
	h.expect(t, r, PromptCorrectAck, PromptAskEmail)
	if st := h.state(t, "sj"); st.CorrectionTarget != intake.Email || st.Confirmed[intake.Email] {
		t.Fatalf("target=%q confirmed=%v", st.CorrectionTarget, st.Confirmed[intake.Email])
	}
}

func TestCorrectionAbandoned(t *testing.T) {
	h := newHarness(t)
	h.put(t, seeded("ab"))
	h.send(t, "ab", "")
	h.send(t, "ab", "no")
	for i := 0; i < 2; i++ {
		r := h.send(t, "ab", "hmm")
		h.expect(t, r, PromptRetry, PromptCorrectSelect)
	}
	r := h.send(t, "ab", "hmm")
	if r.Stage != session.QnAOffer || r.Completed {
		t.Fatalf("stage=%s completed=%v", r.Stage, r.Completed)
	}
	h.expect(t, r, PromptQnAOffer)
}

func TestMatchCorrection(t *testing.T) {
	represented := seeded("m")
	represented.Slots.Set(intake.HasAttorney, "true")
	unrepresented := seeded("m")

	tests := []struct {
		st   *session.State
		text string
		want intake.Field
	}{
		{unrepresented, "the incident date", intake.IncidentDate},
		{unrepresented, "the amount", intake.FundingAmount},
		{unrepresented, "funding", intake.FundingType},
		{unrepresented, "my name", intake.FullName},
		{unrepresented, "phone number", intake.Phone},
		{unrepresented, "what happened", intake.InjuryDetails},
		{unrepresented, "car accident", intake.InjuryType},
		{unrepresented, "my zip", intake.Address},
		{unrepresented, "attorney", intake.HasAttorney},
		{represented, "my lawyer", intake.AttorneyName},
		{represented, "attorney name", intake.AttorneyName},
		{represented, "the attorney's phone", intake.AttorneyName},
		{represented, "my lawyer’s number", intake.AttorneyName},
	}
	for _, tt := range tests {
		got, ok := matchCorrection(tt.st, tt.text)
		if !ok || got != tt.want {
			t.Errorf("matchCorrection(%q) = %q, %v; want %q", tt.text, got, ok, tt.want)
		}
	}
	if _, ok := matchCorrection(unrepresented, "everything looks off"); ok {
		t.Error("unexpected match")
	}
}

func TestQnAAfterCompletion(t *testing.T) {
	search := &fakeKB{snips: []kb.Snippet{
		{Title: "Timing", Text: "Most approvals take 24 to 48 hours."},
		{Title: "Repayment", Text: "You only repay if you win your case."},
	}}
	h := newHarness(t, func(d *Deps, _ *Policy) { d.KB = search })
	h.put(t, seeded("qa"))
	h.send(t, "qa", "")

	r := h.send(t, "qa", "yes that's all correct")
	if !r.Completed || r.Stage != session.QnAOffer {
		t.Fatalf("completed=%v stage=%s", r.Completed, r.Stage)
	}
	h.expect(t, r, PromptQnAOffer)

	r = h.send(t, "qa", "How long does approval take?")
	if r.Stage != session.QnAAsk {
		t.Fatalf("stage = %s", r.Stage)
	}
	if !strings.Contains(r.NextPrompt, "24 to 48 hours") || !strings.Contains(r.NextPrompt, "repay") {
		t.Fatalf("answer = %q", r.NextPrompt)
	}
	if diff := cmp.Diff([]int{1, 2}, r.Citations); diff != "" {
		t.Fatalf("citations (-want +got):\n%s", diff)
	}
	h.expect(t, r, PromptQnAFollowup)
	if st := h.state(t, "qa"); st.QnARemaining != 2 {
		t.Fatalf("budget = %d", st.QnARemaining)
	}

	r = h.send(t, "qa", "no thanks")
	if r.Stage != session.Done || !r.Completed {
		t.Fatalf("stage=%s completed=%v", r.Stage, r.Completed)
	}
	h.expect(t, r, PromptQnAWrap, PromptDone)
	if len(r.Citations) != 0 {
		t.Fatalf("citations = %v", r.Citations)
	}
}

func TestQnABudgetAndFallback(t *testing.T) {
	h := newHarness(t)
	st := seeded("qb")
	st.Stage = session.QnAOffer
	st.Completed = true
	st.QnARemaining = 1
	h.put(t, st)

	r := h.send(t, "qb", "yes")
	if r.Stage != session.QnAAsk || r.ListenTimeoutSec != DefaultPolicy().LongListenSec {
		t.Fatalf("stage=%s listen=%d", r.Stage, r.ListenTimeoutSec)
	}
	h.expect(t, r, PromptQnAPrompt)

	r = h.send(t, "qb", "do you charge interest")
	h.expect(t, r, PromptQnAFallback, PromptDone)
	if r.Stage != session.Done {
		t.Fatalf("budget spent, stage = %s", r.Stage)
	}
}

func TestZeroQnABudgetEndsAfterSummary(t *testing.T) {
	h := newHarness(t)
	st := seeded("q0")
	st.QnARemaining = 0
	h.put(t, st)
	h.send(t, "q0", "")
	r := h.send(t, "q0", "yes")
	if r.Stage != session.Done || !r.Completed {
		t.Fatalf("stage=%s completed=%v", r.Stage, r.Completed)
	}
}

func TestIsQuestion(t *testing.T) {
	tests := map[string]bool{
		"what's the fee?":           true,
		"how long does it take":     true,
		"is it free":                true,
		"yes":                       false,
		"no thanks":                 false,
		"?":                         false,
		"I have a question":         false,
		"Do I need to pay it back?": true,
	}
	for in, want := range tests {
		if got := isQuestion(in); got != want {
			t.Errorf("isQuestion(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClassifyResume(t *testing.T) {
	tests := map[string]resumeChoice{
		"continue please":      choiceContinue,
		"pick up where I left": choiceContinue,
		"I want to update it":  choiceModify,
		"let's start over":     choiceNew,
		"a brand new one":      choiceNew,
		"what":                 choiceNone,
	}
	for in, want := range tests {
		if got := classifyResume(in); got != want {
			t.Errorf("classifyResume(%q) = %v, want %v", in, got, want)
		}
	}
}
