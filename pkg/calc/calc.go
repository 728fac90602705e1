// Package calc provides progress arithmetic helpers.
package calc

import (
	"math"
	"time"
)

// Progress calculates the completion percentage for a done/total pair.
func Progress(done, total int) int {
	if total > 0 {
		return int(math.Round(float64(done) / float64(total) * 100))
	}

	return 0
}

// ETA estimates the remaining duration from the completed/total ratio and the
// batch start time. Returns 0 until at least one unit is done.
func ETA(done, total int, started time.Time) time.Duration {
	if done <= 0 || total <= 0 {
		return 0
	}

	elapsed := time.Since(started)

	return time.Duration(float64(elapsed) * (float64(total)/float64(done) - 1))
}
