// Package transcript keeps the bounded, append-only turn history of each
// session.
package transcript

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCap is the number of turns kept per session.
const DefaultCap = 300

// #region turn
// Role is who spoke a turn.
type Role string

const (
	Caller    Role = "caller"
	Assistant Role = "assistant"
)

// Meta carries per-turn outcome flags on assistant turns.
type Meta struct {
	Completed bool  `json:"completed,omitempty"`
	Handoff   bool  `json:"handoff,omitempty"`
	Citations []int `json:"citations,omitempty"`
}

// Turn is one immutable transcript entry.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Stage     string    `json:"stage"`
	Meta      *Meta     `json:"meta,omitempty"`
}
// #endregion turn

// Log stores turns per session.
type Log interface {
	Append(ctx context.Context, turns ...Turn) error
	List(ctx context.Context, sessionID string) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

func stamp(t *Turn) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
}

// #region memory-log
// MemoryLog is a process-lifetime Log.
type MemoryLog struct {
	limit int
	mu    sync.Mutex
	turns map[string][]Turn
}

// NewMemoryLog keeps at most limit turns per session; limit <= 0 means
// DefaultCap.
func NewMemoryLog(limit int) *MemoryLog {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &MemoryLog{limit: limit, turns: map[string][]Turn{}}
}

func (l *MemoryLog) Append(_ context.Context, turns ...Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range turns {
		stamp(&t)
		list := append(l.turns[t.SessionID], t)
		if over := len(list) - l.limit; over > 0 {
			list = append([]Turn(nil), list[over:]...)
		}
		l.turns[t.SessionID] = list
	}
	return nil
}

func (l *MemoryLog) List(_ context.Context, sessionID string) ([]Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Turn{}, l.turns[sessionID]...), nil
}

func (l *MemoryLog) Clear(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.turns, sessionID)
	return nil
}
// #endregion memory-log

// #region redact
var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{8,}\d`)
)

// Redact masks email addresses and phone numbers in turn text.
func Redact(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		t.Text = emailPattern.ReplaceAllString(t.Text, "[email]")
		t.Text = phonePattern.ReplaceAllString(t.Text, "[phone]")
		out[i] = t
	}
	return out
}
// #endregion redact
