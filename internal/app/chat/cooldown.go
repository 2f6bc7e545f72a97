package chat

import (
	"sync"
	"time"
)

// Cooldown admits at most limit commands per user within interval.
type Cooldown struct {
	mu       sync.Mutex
	history  map[int64][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewCooldown(limit int, interval time.Duration) *Cooldown {
	if limit < 1 {
		limit = 1
	}
	return &Cooldown{
		history:  make(map[int64][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt by user and reports whether it is admitted.
// Rejected attempts do not extend the window.
func (c *Cooldown) Allow(user int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	windowStart := now.Add(-c.interval)

	attempts := c.history[user]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= c.limit {
		c.history[user] = fresh
		return false
	}
	c.history[user] = append(fresh, now)
	return true
}

// Prune forgets users with no attempt inside the window.
func (c *Cooldown) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	windowStart := c.now().Add(-c.interval)
	for user, attempts := range c.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(c.history, user)
		}
	}
}
