package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// RateLimiter tracks per-client request windows and daily quotas.
type RateLimiter struct {
	mu     sync.RWMutex
	limits RateLimitConfig
	now    func() time.Time

	clients map[string]*ClientUsage
	// prunedDay is the start of the last day idle clients were dropped.
	prunedDay time.Time
}

// ClientUsage is one client's consumption in the current windows.
type ClientUsage struct {
	RequestsThisMinute int
	RequestsThisHour   int
	RequestsToday      int
	DataToday          int64

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return NewRateLimiterFromConfig(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		RequestsPerHour:   requestsPerHour,
		MaxRequestsPerDay: maxRequestsPerDay,
		MaxDataPerDay:     maxDataPerDay,
	})
}

// NewRateLimiterFromConfig creates a rate limiter from a config block.
func NewRateLimiterFromConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limits:  cfg,
		now:     time.Now,
		clients: make(map[string]*ClientUsage),
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from
// clientID. Rejected requests are not counted.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if today := startOfDay(now); today.After(rl.prunedDay) {
		rl.prune(today)
		rl.prunedDay = today
	}
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &ClientUsage{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[clientID] = usage
	}
	usage.roll(now)

	if err := rl.checkWindows(usage, now); err != nil {
		return err
	}
	if err := rl.checkDailyQuotas(usage, dataSize); err != nil {
		return err
	}

	usage.RequestsThisMinute++
	usage.RequestsThisHour++
	usage.RequestsToday++
	usage.DataToday += dataSize
	return nil
}

// roll starts new windows once the current ones have elapsed.
func (u *ClientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.RequestsThisMinute = 0
		u.minuteStart = now
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.RequestsThisHour = 0
		u.hourStart = now
	}
	if day := startOfDay(now); day.After(u.dayStart) {
		u.RequestsToday = 0
		u.DataToday = 0
		u.dayStart = day
	}
}

func (rl *RateLimiter) checkWindows(usage *ClientUsage, now time.Time) error {
	if rl.limits.RequestsPerMinute > 0 && usage.RequestsThisMinute >= rl.limits.RequestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.limits.RequestsPerMinute,
			RetryAfter: usage.minuteStart.Add(time.Minute).Sub(now),
		}
	}
	if rl.limits.RequestsPerHour > 0 && usage.RequestsThisHour >= rl.limits.RequestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.limits.RequestsPerHour,
			RetryAfter: usage.hourStart.Add(time.Hour).Sub(now),
		}
	}
	return nil
}

func (rl *RateLimiter) checkDailyQuotas(usage *ClientUsage, dataSize int64) error {
	resets := usage.dayStart.AddDate(0, 0, 1)
	if rl.limits.MaxRequestsPerDay > 0 && usage.RequestsToday >= rl.limits.MaxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.limits.MaxRequestsPerDay),
			Used:   int64(usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.limits.MaxDataPerDay > 0 && usage.DataToday+dataSize > rl.limits.MaxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.limits.MaxDataPerDay,
			Used:   usage.DataToday,
			Resets: resets,
		}
	}
	return nil
}

// GetUsage returns a copy of the client's current usage.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if usage, ok := rl.clients[clientID]; ok {
		return *usage
	}
	return ClientUsage{}
}

// Prune forgets clients with no request today. CheckRateLimit does this
// on its first call of each day.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.prune(startOfDay(rl.now()))
}

func (rl *RateLimiter) prune(cutoff time.Time) int {
	removed := 0
	for id, usage := range rl.clients {
		if usage.dayStart.Before(cutoff) {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
