package imagegen

import (
	"math"
	"time"

	"github.com/book-expert/specter-content/internal/core"
	"golang.org/x/time/rate"
)

// NewPacer returns a limiter that lets the first request through at once
// and spaces the rest by interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

// IntervalFromSeconds converts a configured interval in seconds.
func IntervalFromSeconds(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

var _ core.Pacer = (*rate.Limiter)(nil)
