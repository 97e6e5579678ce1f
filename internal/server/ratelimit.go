// Package server implements the fixed-window rate limiter applied to every
// frame that reaches the router's dispatch step.
package server

import "time"

// windowLimiter counts accepted frames inside a fixed wall-clock window.
// The window restarts once more than its duration has elapsed since it
// opened; frames beyond the cap inside one window are rejected. It is only
// touched from the relay loop, so it carries no lock.
type windowLimiter struct {
	start  time.Time
	count  int
	max    int
	window time.Duration
}

func newWindowLimiter(maxMessages int, window time.Duration) windowLimiter {
	if maxMessages <= 0 {
		maxMessages = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return windowLimiter{
		max:    maxMessages,
		window: window,
	}
}

func (l *windowLimiter) allow(now time.Time) bool {
	if l.start.IsZero() || now.Sub(l.start) > l.window {
		l.start = now
		l.count = 0
	}

	if l.count >= l.max {
		return false
	}

	l.count++
	return true
}
