package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(c *fiber.Ctx) string

// ByIP counts requests per client address
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// ByUserOrIP counts authenticated requests per user and the rest per address
func ByUserOrIP(c *fiber.Ctx) string {
	if user := CurrentUser(c); user != nil {
		return "user:" + strconv.FormatInt(user.ID, 10)
	}
	return "ip:" + c.IP()
}

// clientTable holds one limiter per key
type clientTable struct {
	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (t *clientTable) get(key string, newLimiter func() *rate.Limiter) *client {
	t.mu.Lock()
	defer t.mu.Unlock()

	cl, exists := t.clients[key]
	if !exists {
		cl = &client{limiter: newLimiter()}
		t.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl
}

// sweep forgets clients idle for longer than idle
func (t *clientTable) sweep(idle time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, c := range t.clients {
		if time.Since(c.lastSeen) > idle {
			delete(t.clients, k)
		}
	}
}

// cleanupLoop sweeps every interval until ctx is done
func (t *clientTable) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep(10 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

// RateLimiter creates a rate limiting middleware allowing requests per
// duration for each key. A zero request count disables limiting. Idle
// clients are forgotten until ctx is done.
func RateLimiter(ctx context.Context, requests int, duration time.Duration, key KeyFunc) fiber.Handler {
	if requests <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if key == nil {
		key = ByIP
	}

	table := &clientTable{clients: make(map[string]*client)}
	go table.cleanupLoop(ctx, 5*time.Minute)

	newLimiter := func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(duration/time.Duration(requests)), requests)
	}

	return func(c *fiber.Ctx) error {
		cl := table.get(key(c), newLimiter)
		if !cl.limiter.Allow() {
			return utils.TooManyRequestsError("Rate limit exceeded. Please try again later.").
				WithMessageID("rate_limited", nil)
		}

		return c.Next()
	}
}
