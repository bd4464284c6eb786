package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

var t0 = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func sample() *State {
	st := New("s1", "5551234567", 3, 7, t0)
	st.Stage = Flow
	st.Slots.Set(intake.FullName, "Joe Smith")
	st.Slots.Set(intake.HasAttorney, "yes")
	st.Confidences[intake.FullName] = 0.9
	st.Confirmed[intake.FullName] = true
	st.Retries[RetryKey{Flow, intake.Phone}] = 1
	st.AwaitingConfirm = intake.Phone
	return st
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Stage{
		{Entry, ResumeChoice}, {Entry, Greeting}, {Greeting, Flow},
		{Flow, Summary}, {Summary, CorrectSelect}, {CorrectSelect, Flow},
		{Summary, QnAOffer}, {QnAOffer, QnAAsk}, {QnAAsk, Done}, {Done, Done},
		{ResumeChoice, Flow},
	}
	for _, e := range allowed {
		if !CanTransition(e[0], e[1]) {
			t.Errorf("%s -> %s should be allowed", e[0], e[1])
		}
	}
	denied := [][2]Stage{
		{Done, Flow}, {Done, Entry}, {Flow, Done}, {Greeting, Summary},
		{QnAAsk, Flow}, {Summary, Flow}, {Stage("BOGUS"), Stage("BOGUS")},
	}
	for _, e := range denied {
		if CanTransition(e[0], e[1]) {
			t.Errorf("%s -> %s should be denied", e[0], e[1])
		}
	}
}

func TestRetriesBumpIsBounded(t *testing.T) {
	r := Retries{}
	k := RetryKey{Flow, intake.Email}
	for i := 0; i < 2; i++ {
		if r.Bump(k, 2) {
			t.Fatalf("bump %d reported exhausted early", i)
		}
	}
	for i := 0; i < 5; i++ {
		if !r.Bump(k, 2) {
			t.Fatal("expected exhausted")
		}
	}
	if r[k] != 2 {
		t.Fatalf("counter grew past max: %d", r[k])
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	st := sample()
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back State
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back.Normalize()
	if diff := cmp.Diff(st, &back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	st := sample()
	c := st.Clone()
	c.Confirmed[intake.Email] = true
	c.Retries[RetryKey{Flow, intake.Email}] = 2
	c.Slots.Set(intake.FullName, "Jane Roe")

	if st.Confirmed[intake.Email] || st.Retries[RetryKey{Flow, intake.Email}] != 0 {
		t.Fatal("clone shares maps with original")
	}
	if v, _ := st.Slots.Get(intake.FullName); v != "Joe Smith" {
		t.Fatalf("clone changed original name: %q", v)
	}
}

func TestForget(t *testing.T) {
	st := sample()
	st.Forget(intake.FullName)
	if st.Slots.Has(intake.FullName) || st.Confirmed[intake.FullName] {
		t.Fatal("Forget left the field behind")
	}
	if _, ok := st.Confidences[intake.FullName]; ok {
		t.Fatal("Forget left the confidence behind")
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	st := sample()
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	st.Stage = Summary // mutation after Put must not leak into the store

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != Flow {
		t.Fatalf("expected stored stage FLOW, got %s", got.Stage)
	}
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Fatalf("stored state mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	exerciseStore(t, s)
}
