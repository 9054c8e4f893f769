package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestLogger(level string) (*AppLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(level, &buf).(*AppLogger)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestLogger_FormatsFields(t *testing.T) {
	l, buf := newTestLogger("info")

	l.Info("signature embedded", "page", 2, "url", "a b")

	got := strings.TrimSpace(buf.String())
	want := `[2026-01-02 03:04:05] INFO: signature embedded page=2 url="a b"`
	if got != want {
		t.Fatalf("unexpected log line:\n got: %s\nwant: %s", got, want)
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	l, buf := newTestLogger("warn")

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered, got %s", out)
	}
	if !strings.Contains(out, "WARN: shown") || !strings.Contains(out, "error=boom") {
		t.Fatalf("expected warn and error lines, got %s", out)
	}
}

func TestLogger_DropsDanglingKey(t *testing.T) {
	l, buf := newTestLogger("debug")

	l.Debug("odd", "key")

	if strings.Contains(buf.String(), "key") {
		t.Fatalf("expected dangling key to be dropped, got %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
