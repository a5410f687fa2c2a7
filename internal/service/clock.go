package service

import "time"

// SystemClock implements ports.Clock with the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
