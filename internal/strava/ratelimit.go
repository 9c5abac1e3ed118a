package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava's default application limits. Both windows are fixed: the short one
// resets on the quarter hour, the daily one at midnight UTC.
const (
	defaultShortLimit = 100
	defaultDailyLimit = 1000
	shortPeriod       = 15 * time.Minute
	dailyPeriod       = 24 * time.Hour
	minInterval       = 150 * time.Millisecond
)

type window struct {
	limit    int
	usage    int
	period   time.Duration
	resetsAt time.Time
}

func (w *window) roll(now time.Time) {
	if !now.Before(w.resetsAt) {
		w.usage = 0
		w.resetsAt = now.Truncate(w.period).Add(w.period)
	}
}

func (w *window) remaining() int {
	return w.limit - w.usage
}

// RateLimiter paces requests under Strava's short and daily limits and
// trusts the usage the API reports in its response headers.
type RateLimiter struct {
	mu          sync.Mutex
	short       window
	daily       window
	minInterval time.Duration
	lastRequest time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter with Strava's default limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		short:       window{limit: defaultShortLimit, period: shortPeriod},
		daily:       window{limit: defaultDailyLimit, period: dailyPeriod},
		minInterval: minInterval,
		now:         time.Now,
	}
	now := r.now().UTC()
	r.short.roll(now)
	r.daily.roll(now)
	return r
}

// Wait blocks until a request fits in both windows and the minimum interval
// has passed, then reserves it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := r.reserve()
		if delay == 0 {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// reserve takes a slot and returns 0, or returns how long to wait
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	r.short.roll(now)
	r.daily.roll(now)

	if r.daily.remaining() <= 0 {
		return r.daily.resetsAt.Sub(now)
	}
	if r.short.remaining() <= 0 {
		return r.short.resetsAt.Sub(now)
	}
	if since := now.Sub(r.lastRequest); since < r.minInterval {
		return r.minInterval - since
	}

	r.short.usage++
	r.daily.usage++
	r.lastRequest = now
	return 0
}

// UpdateFromHeaders applies X-RateLimit-Limit and X-RateLimit-Usage, both of
// the form "short,daily".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.short.limit, r.daily.limit = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.short.usage, r.daily.usage = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	first, second, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns the requests left in each window
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.remaining(), r.daily.remaining()
}
