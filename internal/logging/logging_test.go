package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
	} {
		l, err := New(tc.level, true)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.level, err)
		}
		if !l.Core().Enabled(tc.want) || (tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1)) {
			t.Errorf("level %q: core not at %v", tc.level, tc.want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("chatty", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
