package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"
)

func turnAt(session string, i int) Turn {
	role := Caller
	if i%2 == 1 {
		role = Assistant
	}
	return Turn{
		ID:        fmt.Sprintf("%s-%d", session, i),
		SessionID: session,
		At:        time.Date(2024, 6, 10, 12, 0, i, 0, time.UTC),
		Role:      role,
		Text:      fmt.Sprintf("turn %d", i),
		Stage:     "FLOW",
	}
}

func exerciseLog(t *testing.T, l Log) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Append(ctx, turnAt("a", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	done := turnAt("b", 0)
	done.Meta = &Meta{Completed: true, Citations: []int{1, 2}}
	if err := l.Append(ctx, done); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := l.List(ctx, "a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected cap of 3 turns, got %d", len(got))
	}
	if got[0].Text != "turn 2" || got[2].Text != "turn 4" {
		t.Fatalf("expected oldest evicted first, got %q..%q", got[0].Text, got[2].Text)
	}

	again, _ := l.List(ctx, "a")
	if diff := cmp.Diff(got, again); diff != "" {
		t.Fatalf("List is not idempotent (-first +second):\n%s", diff)
	}

	b, _ := l.List(ctx, "b")
	if diff := cmp.Diff([]Turn{done}, b); diff != "" {
		t.Fatalf("session b mismatch (-want +got):\n%s", diff)
	}

	if err := l.Clear(ctx, "a"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := l.List(ctx, "a"); len(got) != 0 {
		t.Fatalf("expected empty transcript after clear, got %d", len(got))
	}
	if got, _ := l.List(ctx, "b"); len(got) != 1 {
		t.Fatal("clearing a touched b")
	}
}

func TestMemoryLog(t *testing.T) {
	exerciseLog(t, NewMemoryLog(3))
}

func TestSQLiteLog(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "transcript.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	l, err := NewSQLiteLog(db, 3)
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	exerciseLog(t, l)
}

func TestAppendStampsIDAndTime(t *testing.T) {
	l := NewMemoryLog(0)
	_ = l.Append(context.Background(), Turn{SessionID: "x", Role: Caller, Text: "hi"})
	got, _ := l.List(context.Background(), "x")
	if len(got) != 1 || got[0].ID == "" || got[0].At.IsZero() {
		t.Fatalf("expected stamped turn, got %+v", got)
	}
}

func TestRedact(t *testing.T) {
	in := []Turn{
		{Text: "my email is joe.smith@example.com"},
		{Text: "call me at 555-123-4567 or (555) 987 6543"},
		{Text: "I was hurt on March 5"},
	}
	got := Redact(in)
	want := []string{
		"my email is [email]",
		"call me at [phone] or [phone]",
		"I was hurt on March 5",
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("Redact[%d] = %q, want %q", i, got[i].Text, want[i])
		}
	}
	if in[0].Text != "my email is joe.smith@example.com" {
		t.Fatal("Redact modified its input")
	}
}
