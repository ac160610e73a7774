package main

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client. A budget of N requests per
// window refills at window/N and allows bursts of N.
type rateLimiter struct {
	name    string
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(name string, cfg LimitConfig) *rateLimiter {
	return &rateLimiter{
		name:    name,
		limit:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:   cfg.Requests,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// reserve takes a token for key. When none is available it returns false and
// how long the client should wait.
func (l *rateLimiter) reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Duration(math.MaxInt64)
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep forgets clients idle for longer than idle and returns how many went.
func (l *rateLimiter) sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for k, b := range l.clients {
		if b.lastSeen.Before(cutoff) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// rateLimits groups the three tiers. A nil *rateLimits disables limiting.
type rateLimits struct {
	general *rateLimiter
	write   *rateLimiter
	clear   *rateLimiter
}

func newRateLimits(cfg RateLimitConfig) *rateLimits {
	if !cfg.Enabled {
		return nil
	}
	return &rateLimits{
		general: newRateLimiter("general", cfg.General),
		write:   newRateLimiter("write", cfg.Write),
		clear:   newRateLimiter("clear", cfg.Clear),
	}
}

// runSweeper drops idle client buckets every interval until ctx is done.
func (rl *rateLimits) runSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if rl == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed := 0
			for _, l := range []*rateLimiter{rl.general, rl.write, rl.clear} {
				removed += l.sweep(interval)
			}
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

// limit returns a middleware enforcing l per client IP. A nil limiter lets
// every request through.
func (s *server) limit(l *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		ok, wait := l.reserve(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		s.log.Warn().Str("tier", l.name).Str("client_ip", c.ClientIP()).Msg("rate limit exceeded")
		c.Header("Retry-After", strconv.Itoa(secs))
		abortWithError(c, http.StatusTooManyRequests, apiError{
			Error:      codeRateLimited,
			Message:    "too many requests, try again later",
			RetryAfter: secs,
		})
	}
}

// tier returns the named limiter, or nil when limiting is disabled.
func (rl *rateLimits) tier(name string) *rateLimiter {
	if rl == nil {
		return nil
	}
	switch name {
	case "general":
		return rl.general
	case "write":
		return rl.write
	case "clear":
		return rl.clear
	}
	return nil
}
