package session

import (
	"maps"
	"time"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// #region state
// State is everything the engine knows about one conversation.
type State struct {
	SessionID string `json:"session_id"`
	// RecordKey is the session id the application record is stored under.
	// It differs from SessionID after a resume.
	RecordKey    string `json:"record_key"`
	Stage        Stage  `json:"stage"`
	CallerNumber string `json:"caller_number,omitempty"`

	Slots       intake.Slots       `json:"slots"`
	Annotations intake.Annotations `json:"annotations"`

	Confidences  map[intake.Field]float64 `json:"confidences,omitempty"`
	Confirmed    map[intake.Field]bool    `json:"confirmed,omitempty"`
	ConfirmAsked map[intake.Field]bool    `json:"confirm_asked,omitempty"`
	Skipped      map[intake.Field]bool    `json:"skipped,omitempty"`
	Retries      Retries                  `json:"retries,omitempty"`

	AwaitingConfirm      intake.Field `json:"awaiting_confirm_field,omitempty"`
	CorrectionTarget     intake.Field `json:"correction_target,omitempty"`
	SummaryRead          bool         `json:"summary_read"`
	AwaitingConfirmation bool         `json:"awaiting_confirmation"`
	Completed            bool         `json:"completed"`
	Handoff              bool         `json:"handoff"`
	QnARemaining         int          `json:"qna_remaining"`
	ListenTimeoutSec     int          `json:"listen_timeout_sec"`

	// ResumeFrom is the session id of the record offered at RESUME_CHOICE.
	ResumeFrom   string `json:"resume_from,omitempty"`
	ResumeStatus string `json:"resume_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
// #endregion state

// New returns a fresh ENTRY state.
func New(sessionID, callerNumber string, qnaBudget, listenSec int, now time.Time) *State {
	return &State{
		SessionID:        sessionID,
		RecordKey:        sessionID,
		Stage:            Entry,
		CallerNumber:     callerNumber,
		Confidences:      map[intake.Field]float64{},
		Confirmed:        map[intake.Field]bool{},
		ConfirmAsked:     map[intake.Field]bool{},
		Skipped:          map[intake.Field]bool{},
		Retries:          Retries{},
		QnARemaining:     qnaBudget,
		ListenTimeoutSec: listenSec,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Snapshot projects the caller-visible field values.
func (s *State) Snapshot() intake.Snapshot {
	return intake.Snapshot{
		CallerNumber: s.CallerNumber,
		Slots:        s.Slots,
		Annotations:  s.Annotations,
	}
}

// Clone returns a deep copy. Slot pointers are shared because slot values
// are replaced, never mutated in place.
func (s *State) Clone() *State {
	c := *s
	c.Confidences = cloneOrEmpty(s.Confidences)
	c.Confirmed = cloneOrEmpty(s.Confirmed)
	c.ConfirmAsked = cloneOrEmpty(s.ConfirmAsked)
	c.Skipped = cloneOrEmpty(s.Skipped)
	c.Retries = cloneOrEmpty(s.Retries)
	return &c
}

// Normalize allocates any nil maps, e.g. after decoding an older row.
func (s *State) Normalize() {
	if s.Confidences == nil {
		s.Confidences = map[intake.Field]float64{}
	}
	if s.Confirmed == nil {
		s.Confirmed = map[intake.Field]bool{}
	}
	if s.ConfirmAsked == nil {
		s.ConfirmAsked = map[intake.Field]bool{}
	}
	if s.Skipped == nil {
		s.Skipped = map[intake.Field]bool{}
	}
	if s.Retries == nil {
		s.Retries = Retries{}
	}
	if s.RecordKey == "" {
		s.RecordKey = s.SessionID
	}
}

// Forget clears a field and its confirmation bookkeeping.
func (s *State) Forget(f intake.Field) {
	s.Slots.Clear(f)
	delete(s.Confidences, f)
	delete(s.Confirmed, f)
	delete(s.ConfirmAsked, f)
}

func cloneOrEmpty[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return M{}
	}
	return maps.Clone(m)
}
