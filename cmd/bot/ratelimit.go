package main

import (
	"sync"

	"golang.org/x/time/rate"
)

// intakeInterval and intakeBurst shape the per-user ticket creation limit:
// short bursts are fine, sustained spam is not.
const (
	intakeInterval = 30 // seconds between replenished slots
	intakeBurst    = 2
)

// intakeLimiter rate limits ticket creation per user.
type intakeLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newIntakeLimiter() *intakeLimiter {
	return &intakeLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *intakeLimiter) allow(userID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(1.0/intakeInterval), intakeBurst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
