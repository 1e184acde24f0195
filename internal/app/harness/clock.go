package harness

import (
	"strconv"
	"time"
)

// Clock returns the current time as float milliseconds with sub-millisecond
// precision. Both peers must share a clock source for cross-host latency to
// be meaningful; within one host the wall clock is exact.
type Clock func() float64

// WallClockMs is the default clock: Unix epoch milliseconds.
func WallClockMs() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}

// formatTimestamp renders a clock reading with microsecond precision, the
// payload carried inside the QR overlay.
func formatTimestamp(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64)
}
