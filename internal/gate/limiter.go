package gate

import (
	"context"
	"sync"
	"time"
)

// Limiter is an in-memory per-user fixed-window quota. It implements
// Authorizer for deployments without an external gate in front.
type Limiter struct {
	mu           sync.Mutex
	users        map[string]*userQuota
	stopCleanup  chan struct{}
	shutdownOnce sync.Once

	requestsPerMinute int
	cleanupInterval   time.Duration
}

type userQuota struct {
	windowStart time.Time
	used        int
}

// LimiterConfig holds rate limiter configuration.
type LimiterConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultLimiterConfig returns sensible defaults.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new per-user limiter and starts its cleanup loop.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultLimiterConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	l := &Limiter{
		users:             make(map[string]*userQuota),
		stopCleanup:       make(chan struct{}),
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
	}
	go l.startCleanup()
	return l
}

// Authorize consumes cost units from the user's current window. It never
// touches the store and therefore never returns core.ErrStore.
func (l *Limiter) Authorize(_ context.Context, userID string, cost int) error {
	if cost <= 0 {
		cost = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	q, exists := l.users[userID]
	if !exists || now.Sub(q.windowStart) > time.Minute {
		q = &userQuota{windowStart: now}
		l.users[userID] = q
	}

	q.used += cost
	if q.used <= l.requestsPerMinute {
		return nil
	}

	remaining := l.requestsPerMinute - (q.used - cost)
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitDenial{
		Remaining:  remaining,
		RetryAfter: time.Minute - now.Sub(q.windowStart),
	}
}

func (l *Limiter) startCleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupStaleEntries()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes quotas idle for more than 10 minutes.
func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for id, q := range l.users {
		if q.windowStart.Before(cutoff) {
			delete(l.users, id)
		}
	}
}

// ActiveUsers returns the number of currently tracked users.
func (l *Limiter) ActiveUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Stop gracefully shuts down the cleanup goroutine.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}
