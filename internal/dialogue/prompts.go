package dialogue

import "strings"

// Prompt keys. Every caller-facing sentence is looked up by key so
// deployments can override wording without code changes.
const (
	PromptIntro            = "INTRO"
	PromptAskName          = "ASK_NAME"
	PromptAskPhone         = "ASK_PHONE"
	PromptAskEmail         = "ASK_EMAIL"
	PromptAskAddress       = "ASK_ADDRESS"
	PromptAskAttorneyYN    = "ASK_ATTORNEY_YN"
	PromptAskAttorneyInfo  = "ASK_ATTORNEY_INFO"
	PromptAskCaseType      = "ASK_CASE_TYPE"
	PromptAskInjuryDetails = "ASK_INJURY_DETAILS"
	PromptAskIncidentDate  = "ASK_INCIDENT_DATE"
	PromptAskFundingType   = "ASK_FUNDING_TYPE"
	PromptAskFundingAmount = "ASK_FUNDING_AMOUNT"

	PromptConfirmName          = "CONFIRM_NAME"
	PromptConfirmPhone         = "CONFIRM_PHONE"
	PromptConfirmEmail         = "CONFIRM_EMAIL"
	PromptConfirmAddress       = "CONFIRM_ADDRESS"
	PromptConfirmAttorney      = "CONFIRM_ATTORNEY"
	PromptConfirmInjuryDetails = "CONFIRM_INJURY_DETAILS"
	PromptConfirmHasAttorney   = "CONFIRM_HAS_ATTORNEY"
	PromptConfirmField         = "CONFIRM_FIELD"
	PromptConfirmRetry         = "CONFIRM_RETRY"
	PromptNameSpell            = "NAME_SPELL_PROMPT"
	PromptEmailSpell           = "EMAIL_SPELL_PROMPT"
	PromptRejectAck            = "REJECT_ACK"

	PromptRetry             = "RETRY"
	PromptMoveOn            = "MOVE_ON"
	PromptAddressSkipped    = "ADDRESS_SKIPPED"
	PromptAddressVerifyFail = "ADDRESS_VERIFY_FAIL"
	PromptStateEligible     = "STATE_ELIGIBLE"
	PromptStateIneligible   = "STATE_INELIGIBLE"

	PromptResumePending   = "RESUME_PENDING"
	PromptResumeCompleted = "RESUME_COMPLETED"
	PromptResumeClarify   = "RESUME_CLARIFY"
	PromptResumeAck       = "RESUME_ACK"

	PromptSummaryIntro   = "SUMMARY_INTRO"
	PromptSummaryConfirm = "SUMMARY_CONFIRM"
	PromptSummaryRetry   = "SUMMARY_RETRY"
	PromptCorrectSelect  = "CORRECT_SELECT"
	PromptCorrectAck     = "CORRECT_ACK"

	PromptQnAOffer    = "QNA_OFFER"
	PromptQnAPrompt   = "QNA_PROMPT"
	PromptQnAFollowup = "QNA_FOLLOWUP"
	PromptQnAFallback = "QNA_FALLBACK"
	PromptQnAWrap     = "QNA_WRAP"

	PromptHandoff = "HANDOFF"
	PromptDone    = "DONE"
)

// #region defaults
var defaultPrompts = map[string]string{
	PromptIntro: "Hi, I'm Anna with Oasis, your intake assistant for pre-settlement funding. " +
		"I'll collect a few details to start your application and confirm them with you.",
	PromptAskName:          "To start, please say your full legal name as it appears on your ID.",
	PromptAskPhone:         "What's the best phone number to reach you?",
	PromptAskEmail:         "What's the best email address for updates?",
	PromptAskAddress:       "What's your home address, including city, state and ZIP? You can say skip if you'd rather not share it.",
	PromptAskAttorneyYN:    "Do you currently have an attorney representing you? Please say yes or no.",
	PromptAskAttorneyInfo:  "Please tell me your attorney's name, their phone number, the law firm and the firm's address.",
	PromptAskCaseType:      "Which best describes your case: auto accident, slip and fall, or dog bite?",
	PromptAskInjuryDetails: "I'm sorry you're going through this. Briefly, what happened?",
	PromptAskIncidentDate:  "On what date did the incident happen? Please say the month, day and year.",
	PromptAskFundingType:   "Are you looking for fresh funding, or to extend funding you already have?",
	PromptAskFundingAmount: "About how much funding are you looking for, in U.S. dollars?",

	PromptConfirmName:          "I have your full legal name as {name}. That's spelled {spelled}. Is that correct?",
	PromptConfirmPhone:         "I have your phone number as {phone}. Is that correct?",
	PromptConfirmEmail:         "I have your email as {email}. That's {spelled}. Is that correct?",
	PromptConfirmAddress:       "I have your address as {address}. Is that correct?",
	PromptConfirmAttorney:      "I have your attorney information as {summary}. Is that correct?",
	PromptConfirmInjuryDetails: "Here's what I noted about the incident: {details}. Is that correct?",
	PromptConfirmHasAttorney:   "Just to confirm, you {answer} have an attorney right now. Is that correct?",
	PromptConfirmField:         "I have your {label} as {value}. Is that correct?",
	PromptConfirmRetry:         "Sorry, please answer yes or no.",
	PromptNameSpell:            "Please say your full legal name again, spelling it slowly, letter by letter.",
	PromptEmailSpell:           "Please say your full email address again, spelling it slowly.",
	PromptRejectAck:            "Sorry about that.",

	PromptRetry:             "Sorry, I didn't catch that.",
	PromptMoveOn:            "No problem, let's move on. A specialist can collect that later.",
	PromptAddressSkipped:    "No problem, I'll note that the address wasn't provided.",
	PromptAddressVerifyFail: "Thanks. I couldn't verify that address, so I'll note it for a specialist to double-check.",
	PromptStateEligible:     "Good news, Oasis serves clients in {state}.",
	PromptStateIneligible:   "It looks like Oasis may not serve clients in {state}. A specialist can confirm.",

	PromptResumePending:   "Welcome back. I see an application in progress for this number. Would you like to continue it, or start a new one?",
	PromptResumeCompleted: "Welcome back. I see a completed application for this number. Would you like to modify it, or start a new one?",
	PromptResumeClarify:   "Sorry, please say continue, modify, or new.",
	PromptResumeAck:       "Great, let's pick up where we left off.",

	PromptSummaryIntro:   "Let me repeat what I captured.",
	PromptSummaryConfirm: "Is everything correct?",
	PromptSummaryRetry:   "Sorry, is everything I read back correct? Please say yes or no.",
	PromptCorrectSelect: "Which information would you like to change? You can say name, phone, email, address, " +
		"attorney, case, details, incident date, funding type, or funding amount.",
	PromptCorrectAck: "Got it, let's update that.",

	PromptQnAOffer:    "Before we wrap up, do you have any questions for me?",
	PromptQnAPrompt:   "Sure, what would you like to know?",
	PromptQnAFollowup: "Anything else I can clarify?",
	PromptQnAFallback: "I don't have that information handy, but your case specialist can answer it.",
	PromptQnAWrap:     "Thanks for calling Oasis today.",

	PromptHandoff: "Okay, I'll connect you to a specialist now and share the information I've captured.",
	PromptDone:    "Thank you. A case specialist will reach out shortly.",
}
// #endregion defaults

// Prompts maps prompt keys to templates with {placeholder} variables.
type Prompts map[string]string

// DefaultPrompts returns a copy of the built-in wording.
func DefaultPrompts() Prompts {
	p := make(Prompts, len(defaultPrompts))
	for k, v := range defaultPrompts {
		p[k] = v
	}
	return p
}

// With returns a copy of p with non-empty overrides applied.
func (p Prompts) With(overrides map[string]string) Prompts {
	out := make(Prompts, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Render fills {name} placeholders from vars, given as name/value pairs.
// Unknown keys render as "".
func (p Prompts) Render(key string, vars ...string) string {
	tmpl := p[key]
	if len(vars) < 2 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars))
	for i := 0; i+1 < len(vars); i += 2 {
		pairs = append(pairs, "{"+vars[i]+"}", vars[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
