package clock

import (
	"time"

	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure Real implements the interface.
var _ driven.Scheduler = Real{}

// Real schedules callbacks on wall-clock timers.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f in its own goroutine after d.
func (Real) AfterFunc(d time.Duration, f func()) driven.Timer {
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, f)
}
