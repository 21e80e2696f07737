package engine

import (
	"strings"
	"testing"
)

func TestFormatMetricsListsEveryKey(t *testing.T) {
	IncrClipsWritten()
	out := FormatMetrics()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(metricKeys) {
		t.Fatalf("got %d lines, want %d", len(lines), len(metricKeys))
	}
	for i, k := range metricKeys {
		if !strings.HasPrefix(lines[i], k+" ") {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], k)
		}
	}
	if GetMetrics()["clips_written"] < 1 {
		t.Error("clips_written not incremented")
	}
}
