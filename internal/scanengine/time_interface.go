package scanengine

import "time"

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// Now returns the current time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// TimeProvider provides the clock for dependency injection.
type TimeProvider interface {
	Now() time.Time
}
