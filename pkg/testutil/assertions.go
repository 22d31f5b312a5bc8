package testutil

import (
	"strings"
	"testing"
)

// AssertCSVHeader verifies the first line of a CSV document.
func AssertCSVHeader(t *testing.T, csv string, columns []string) {
	t.Helper()
	lines := strings.SplitN(csv, "\n", 2)
	want := strings.Join(columns, ",")
	if lines[0] != want {
		t.Errorf("csv header = %q, want %q", lines[0], want)
	}
}

// AssertCSVLineCount verifies the number of non-empty lines (header included).
func AssertCSVLineCount(t *testing.T, csv string, want int) {
	t.Helper()
	got := CountCSVLines(csv)
	if got != want {
		t.Errorf("csv has %d lines, want %d", got, want)
	}
}

// CountCSVLines counts non-empty lines. A trailing newline does not add a
// line.
func CountCSVLines(csv string) int {
	n := 0
	for _, line := range strings.Split(csv, "\n") {
		if line != "" {
			n++
		}
	}
	return n
}

// AssertContains fails unless s contains substr.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", clip(s), substr)
	}
}

// AssertNotContains fails if s contains substr.
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected %q not to contain %q", clip(s), substr)
	}
}

func clip(s string) string {
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
