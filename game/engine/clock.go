package engine

import "time"

// Clock abstracts wall-clock time so tests can drive settlement
// deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
