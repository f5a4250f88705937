package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(LevelInfo)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelInfo)

	Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Debug() at INFO wrote %q, want nothing", buf.String())
	}

	Info("shown", "lanes", 4)
	if !strings.Contains(buf.String(), "[INFO] shown lanes=4") {
		t.Errorf("Info() line = %q", buf.String())
	}

	buf.Reset()
	Warn("careful")
	if !strings.Contains(buf.String(), "[WARN] careful") {
		t.Errorf("Warn() line = %q", buf.String())
	}
}

func TestErrorPrependsErr(t *testing.T) {
	buf := capture(t, LevelError)

	Info("hidden")
	Error("write failed", errors.New("boom"), "cmd", "0x29")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("Info() leaked at ERROR level: %q", got)
	}
	if !strings.Contains(got, "[ERROR] write failed err=boom cmd=0x29") {
		t.Errorf("Error() line = %q", got)
	}
}

func TestWithFields(t *testing.T) {
	buf := capture(t, LevelDebug)

	l := With("panel", "er88577b").With("dev", "spi0")
	l.Debug("reset", "level", "low")

	got := buf.String()
	if !strings.Contains(got, "[DEBUG] reset panel=er88577b dev=spi0 level=low") {
		t.Errorf("Logger.Debug() line = %q", got)
	}
}

func TestOddKVIgnored(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("msg", "a", 1, "dangling")
	if strings.Contains(buf.String(), "dangling") {
		t.Errorf("odd trailing key was printed: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"Error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
