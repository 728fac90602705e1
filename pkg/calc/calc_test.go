package calc_test

import (
	"testing"
	"time"

	"reelbatch/pkg/calc"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		done  int
		total int
		want  int
	}{
		{name: "zero total", done: 5, total: 0, want: 0},
		{name: "nothing done", done: 0, total: 4, want: 0},
		{name: "half done", done: 2, total: 4, want: 50},
		{name: "rounds to nearest", done: 1, total: 3, want: 33},
		{name: "all done", done: 4, total: 4, want: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := calc.Progress(tc.done, tc.total); got != tc.want {
				t.Errorf("Progress(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
			}
		})
	}
}

func TestETA(t *testing.T) {
	started := time.Now().Add(-1 * time.Minute)

	if got := calc.ETA(0, 4, started); got != 0 {
		t.Errorf("ETA with nothing done = %v, want 0", got)
	}

	if got := calc.ETA(2, 0, started); got != 0 {
		t.Errorf("ETA with zero total = %v, want 0", got)
	}

	got := calc.ETA(2, 4, started)
	if got < 55*time.Second || got > 65*time.Second {
		t.Errorf("ETA(2, 4) after a minute = %v, want about a minute", got)
	}
}
