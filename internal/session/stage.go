package session

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// #region stage
// Stage is the discrete state of one conversation.
type Stage string

const (
	Entry         Stage = "ENTRY"
	ResumeChoice  Stage = "RESUME_CHOICE"
	Greeting      Stage = "GREETING"
	Flow          Stage = "FLOW"
	Summary       Stage = "SUMMARY"
	CorrectSelect Stage = "CORRECT_SELECT"
	QnAOffer      Stage = "QNA_OFFER"
	QnAAsk        Stage = "QNA_ASK"
	Done          Stage = "DONE"
)

// Stages lists every stage in forward order.
var Stages = []Stage{Entry, ResumeChoice, Greeting, Flow, Summary, CorrectSelect, QnAOffer, QnAAsk, Done}

// edges is the directed stage graph. Self-loops are always allowed.
var edges = map[Stage][]Stage{
	Entry:         {ResumeChoice, Greeting},
	ResumeChoice:  {Greeting, Flow, Summary, CorrectSelect},
	Greeting:      {Flow},
	Flow:          {Summary},
	Summary:       {CorrectSelect, QnAOffer},
	CorrectSelect: {Flow, QnAOffer},
	QnAOffer:      {QnAAsk, Done},
	QnAAsk:        {Done},
	Done:          nil,
}
// #endregion stage

// CanTransition reports whether from → to is an edge of the stage graph.
func CanTransition(from, to Stage) bool {
	if from == to {
		_, ok := edges[from]
		return ok
	}
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := edges[s]
	return ok
}

// #region retry-key
// RetryKey indexes a retry counter by stage and, in FLOW, by field.
type RetryKey struct {
	Stage Stage
	Field intake.Field
}

// MarshalText renders the key as "STAGE/field" so it can key a JSON object.
func (k RetryKey) MarshalText() ([]byte, error) {
	return []byte(string(k.Stage) + "/" + string(k.Field)), nil
}

// UnmarshalText parses "STAGE/field".
func (k *RetryKey) UnmarshalText(b []byte) error {
	stage, field, _ := strings.Cut(string(b), "/")
	if !Stage(stage).Valid() {
		return fmt.Errorf("retry key %q: unknown stage", b)
	}
	k.Stage, k.Field = Stage(stage), intake.Field(field)
	return nil
}

// Retries counts failed attempts per key.
type Retries map[RetryKey]int

// Bump records one more failed attempt at k. It returns true once the
// counter has already reached limit; the counter never grows past limit.
func (r Retries) Bump(k RetryKey, limit int) (exhausted bool) {
	if r[k] >= limit {
		return true
	}
	r[k]++
	return false
}
// #endregion retry-key
