package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReplayWriter_Grammar(t *testing.T) {
	var buf bytes.Buffer
	rw := NewReplayWriterTo(&buf)

	ts := time.Date(2026, 7, 30, 14, 3, 0, 0, time.UTC)
	rw.Header("uiccscan", ts)
	rw.PowerOn()
	rw.Section("3F00")
	rw.LogExchange([]byte{0xA0, 0xA4, 0x00, 0x00, 0x02, 0x3F, 0x00}, []byte{0x9F, 0x17}, 0x619F)
	rw.LogExchange([]byte{0xA0, 0xC0, 0x00, 0x00, 0x17}, nil, 0x9000)
	if err := rw.w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got := buf.String()
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	want := []string{
		"; Generated with uiccscan on 2026-07-30 14:03",
		".POWER_ON",
		"; 3F00",
		"A0A40000023F00 [9F17] (619F)",
		"A0C0000017 (9000)",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReplayWriter_SectionDedup(t *testing.T) {
	var buf bytes.Buffer
	rw := NewReplayWriterTo(&buf)

	rw.Section("3F00")
	rw.Section("3F00")
	rw.Section("3F007F20")
	_ = rw.w.Flush()

	got := buf.String()
	if strings.Count(got, "; 3F00\n") != 1 {
		t.Errorf("expected exactly one header for repeated 3F00 section, got: %q", got)
	}
	if !strings.Contains(got, "; 3F00/7F20\n") {
		t.Errorf("expected a section header for 3F007F20, got: %q", got)
	}
}

func TestReplayWriter_Comment(t *testing.T) {
	var buf bytes.Buffer
	rw := NewReplayWriterTo(&buf)
	rw.Comment("CHV1/GPIN disabled, skipping")
	_ = rw.w.Flush()

	want := "; CHV1/GPIN disabled, skipping\n"
	if buf.String() != want {
		t.Errorf("Comment output = %q, want %q", buf.String(), want)
	}
}
