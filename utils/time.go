// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// IsExpired checks if the given time is in the past (expired)
func IsExpired(t time.Time) bool {
	return UTCNow().After(t)
}

// Clock yields the current time; flows take one so tests can pin timestamps.
type Clock func() time.Time

// SystemClock is the default Clock, truncated to microseconds so values survive a
// round trip through PostgreSQL timestamps unchanged.
func SystemClock() time.Time {
	return UTCNow().Truncate(time.Microsecond)
}
