package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its limiter
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per IP
// with bursts of up to burst requests
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// getLimiter returns the limiter of ip, creating it on first sight, and
// drops visitors idle for longer than visitorTTL
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Limit rejects requests over the client's budget with 429 RATE_LIMITED
func (rl *RateLimiter) Limit(c *gin.Context) {
	ip := c.ClientIP()
	if !rl.getLimiter(ip).Allow() {
		utils.JSONErrorCode(c, http.StatusTooManyRequests, helpers.CodeRateLimited,
			errors.New("rate limit exceeded"), "too many requests, please try again later")
		utils.Warn("RateLimiter: request rejected", map[string]any{"client_ip": ip, "path": c.Request.URL.Path})
		return
	}
	c.Next()
}
