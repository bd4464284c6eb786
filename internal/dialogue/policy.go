package dialogue

import (
	"time"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// #region policy
// Policy holds the tunable conversation parameters.
type Policy struct {
	// AcceptThreshold is the confidence at or above which a value outside
	// ConfirmFields is trusted without read-back.
	AcceptThreshold float64
	// AmbiguousIsYes treats an unclassifiable reply to a confirmation as yes.
	// When false the question is repeated up to MaxRetries times first.
	AmbiguousIsYes bool
	// MaxRetries bounds every retry counter; one more failure forces progress.
	MaxRetries int
	// ConfirmFields are always read back once per capture.
	ConfirmFields map[intake.Field]bool
	// SpellOnReject switches to a letter-by-letter prompt after a rejection.
	SpellOnReject map[intake.Field]bool

	QnABudget    int
	SnippetChars int
	// MaxPromptChars caps next_prompt in runes.
	MaxPromptChars int

	DefaultListenSec int
	LongListenSec    int
	// DefaultConfidence is reported on turns that captured nothing.
	DefaultConfidence float64

	ExtractTimeout time.Duration
	VerifyTimeout  time.Duration
	KBTimeout      time.Duration

	// EligibilityQuery is formatted with the state name.
	EligibilityQuery string
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		AcceptThreshold: 0.6,
		AmbiguousIsYes:  true,
		MaxRetries:      2,
		ConfirmFields: map[intake.Field]bool{
			intake.FullName:      true,
			intake.Phone:         true,
			intake.Email:         true,
			intake.Address:       true,
			intake.AttorneyName:  true,
			intake.InjuryDetails: true,
		},
		SpellOnReject: map[intake.Field]bool{
			intake.FullName: true,
			intake.Email:    true,
		},
		QnABudget:         3,
		SnippetChars:      280,
		MaxPromptChars:    1000,
		DefaultListenSec:  7,
		LongListenSec:     15,
		DefaultConfidence: 0.7,
		ExtractTimeout:    8 * time.Second,
		VerifyTimeout:     8 * time.Second,
		KBTimeout:         6 * time.Second,
		EligibilityQuery:  "Does Oasis serve clients in %s?",
	}
}
// #endregion policy
