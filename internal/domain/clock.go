package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps created, added and enqueued times. Tests replace it with a
// fake through SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the timestamp source; nil restores the wall clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now is the current UTC time according to the package clock.
func Now() time.Time {
	return clock.Now().UTC()
}
