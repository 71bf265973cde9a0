package driven

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled one-shot callback.
type Timer interface {
	// Stop prevents the callback from running.
	// Returns false if it already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
// Production uses wall-clock timers; tests advance a manual clock.
type Scheduler interface {
	Clock

	// AfterFunc runs f once, d from now. A non-positive d runs f as soon as possible.
	AfterFunc(d time.Duration, f func()) Timer
}
