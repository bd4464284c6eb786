package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing clock.
	clock := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func stateFor(id, caller string) *session.State {
	st := session.New(id, caller, 3, 7, time.Time{})
	st.Slots.Set(intake.FullName, "Joe Smith")
	st.Slots.Set(intake.Phone, "5551234567")
	return st
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	st := stateFor("s1", "+1 (555) 123-4567")
	id, err := s.Upsert(ctx, st)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	first, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Status != StatusPending || first.CallerNumber != "5551234567" {
		t.Fatalf("unexpected record: %+v", first)
	}
	if v, _ := first.Slots.Get(intake.BestPhone); v != "5551234567" {
		t.Fatalf("best_phone should fall back to phone, got %q", v)
	}

	st.Slots.Set(intake.FundingAmount, "$2,000")
	yes := true
	st.Slots.HasAttorney = &yes
	st.Annotations.AddressVerified = true
	st.Annotations.StateEligible = intake.EligibilityYes
	st.Completed = true
	id2, err := s.Upsert(ctx, st)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if id2 != id {
		t.Fatalf("upsert changed id: %s -> %s", id, id2)
	}

	got, err := s.GetBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) || !got.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("timestamps not preserved/advanced: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	want := st.Snapshot()
	want.CallerNumber = "5551234567"
	want.Slots.Set(intake.BestPhone, "5551234567")
	if diff := cmp.Diff(want, got.Snapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertUsesRecordKey(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	old := stateFor("old", "5551234567")
	id, _ := s.Upsert(ctx, old)

	resumed := stateFor("new", "5551234567")
	resumed.RecordKey = "old"
	id2, err := s.Upsert(ctx, resumed)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id2 != id {
		t.Fatal("resumed session forked a new record")
	}
	if _, err := s.GetBySession(ctx, "new"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no record under the new session id, got %v", err)
	}
}

func TestLatestByCallerAndList(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if app, err := s.LatestByCaller(ctx, "5551234567"); err != nil || app != nil {
		t.Fatalf("expected nil,nil for unknown caller, got %v,%v", app, err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Upsert(ctx, stateFor(id, "5551234567")); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	if _, err := s.Upsert(ctx, stateFor("other", "5559990000")); err != nil {
		t.Fatalf("Upsert other: %v", err)
	}
	// Touch "a" so it becomes the most recent.
	if _, err := s.Upsert(ctx, stateFor("a", "5551234567")); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}

	latest, err := s.LatestByCaller(ctx, "555-123-4567")
	if err != nil || latest == nil {
		t.Fatalf("LatestByCaller: %v %v", latest, err)
	}
	if latest.SessionID != "a" {
		t.Fatalf("expected a, got %s", latest.SessionID)
	}

	list, err := s.List(ctx, "5551234567", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var order []string
	for _, a := range list {
		order = append(order, a.SessionID)
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	again, _ := s.List(ctx, "5551234567", 0)
	if diff := cmp.Diff(list, again); diff != "" {
		t.Fatalf("List is not idempotent:\n%s", diff)
	}

	all, _ := s.List(ctx, "", 2)
	if len(all) != 2 {
		t.Fatalf("expected limit 2, got %d", len(all))
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, stateFor("s1", ""))
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryDatabaseIsShared(t *testing.T) {
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if _, err := s.Upsert(context.Background(), stateFor("m", "")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.GetBySession(context.Background(), "m"); err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
}
