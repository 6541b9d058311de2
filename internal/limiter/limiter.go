// Package limiter implements a per-client request-rate guard, layered in
// front of the Admission Controller. It answers "how fast is this client
// allowed to submit", a distinct concern from C5's "how many submissions may
// run concurrently" — a bursty client can be rate-limited here long before
// it would ever threaten the in-flight ceiling.
package limiter

import (
	"net/http"
	"sync"
	"time"

	"github.com/sempr/judgecore/internal/metrics"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	globalLimiter *rate.Limiter
	perIPLimiters sync.Map
	ipRate        rate.Limit
	ipBurst       int
}

func NewRateLimiter(globalRPS float64, perIPRPS float64, perIPBurst int) *RateLimiter {
	return &RateLimiter{
		globalLimiter: rate.NewLimiter(rate.Limit(globalRPS), int(globalRPS)*2),
		ipRate:        rate.Limit(perIPRPS),
		ipBurst:       perIPBurst,
	}
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.perIPLimiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.ipRate, rl.ipBurst)
	rl.perIPLimiters.Store(ip, limiter)
	return limiter
}

// Allow reports whether ip may submit right now, against both the global
// and the per-IP budget.
func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.globalLimiter.Allow() {
		metrics.RateLimitHits.Inc()
		return false
	}

	if !rl.getIPLimiter(ip).Allow() {
		metrics.RateLimitHits.Inc()
		return false
	}

	return true
}

// Middleware rejects requests that exceed the rate budget with 429 before
// they reach the handler; requests that pass still go through the Admission
// Controller's own, independent throttle.
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !rl.Allow(ip) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}

// StartCleanup periodically discards all tracked per-IP limiters so memory
// does not grow unbounded across the lifetime of the process. A more
// sophisticated version would evict only stale entries; this mirrors the
// simple periodic-reset approach it was adapted from.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	go func() {
		for {
			time.Sleep(interval)
			rl.perIPLimiters.Range(func(key, _ any) bool {
				rl.perIPLimiters.Delete(key)
				return true
			})
		}
	}()
}
