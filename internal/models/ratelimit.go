package models

import (
	"time"
)

// RateDecision is the outcome of consuming one request from a window
type RateDecision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RetryAfter returns the whole number of seconds a rejected caller should wait,
// rounded up. Allowed decisions return zero.
func (d RateDecision) RetryAfter(now time.Time) int {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}
