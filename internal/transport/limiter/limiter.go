package limiter

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps how many commands one subscriber may submit per minute.
// A nil Limiter or a non-positive limit allows everything.
type Limiter struct {
	limit int
	rl    *rate.Limiter
}

// New builds a limiter allowing perMinute commands, bursting up to perMinute.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limit: perMinute,
		rl:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Allow reports whether one more command may pass now.
func (l *Limiter) Allow() bool {
	if l == nil || l.rl == nil {
		return true
	}
	return l.rl.Allow()
}

// Limit returns the configured commands per minute, 0 when unlimited.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.limit
}
