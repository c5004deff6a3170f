package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func testLogger(buf *bytes.Buffer, level Level) Logger {
	l := NewLogger(buf, level).(*writerLogger)
	l.now = fixedClock
	return l
}

func TestWriterLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(&buf, LevelInfo)

	log.Info("page redacted", Int("page", 3), String("kind", "native"))

	got := buf.String()
	want := "2026-03-14T09:26:53Z INFO  page redacted kind=native page=3\n"
	if got != want {
		t.Fatalf("log line = %q, want %q", got, want)
	}
}

func TestWriterLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(&buf, LevelWarn)

	log.Debug("noise")
	log.Info("noise")
	log.Warn("kept")
	log.Error("kept", Error("err", errors.New("boom")))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "err=boom") {
		t.Fatalf("error field missing: %q", lines[1])
	}
}

func TestWriterLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(&buf, LevelDebug).With(String("file", "brief.pdf"))

	log.Debug("classifying", Int("page", 1))

	if !strings.Contains(buf.String(), "file=brief.pdf page=1") {
		t.Fatalf("bound field missing: %q", buf.String())
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	var log Logger = NopLogger{}
	log = log.With(String("k", "v"))
	log.Info("nothing")
}
