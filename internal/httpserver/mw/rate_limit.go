package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/utils"
)

// RateLimitConfig bounds check submissions per client IP. Status polling and
// admin routes are not mounted behind this; only submission burns tokens.
type RateLimitConfig struct {
	Burst        int // bucket capacity, submissions allowed at once
	RefillPerMin int // tokens restored per minute
	MaxClients   int // sweep trigger, 0 means unbounded
	IdleTTL      time.Duration
	TrustProxy   bool // resolve IP from proxy headers when true
}

type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// take refills by elapsed time, then spends one token. On refusal it returns
// the whole seconds until a token is available.
func (b *tokenBucket) take(now time.Time, rate, capacity float64) (bool, float64, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*rate)
		b.refilled = now
	}

	if b.tokens < 1.0 {
		wait := int(math.Ceil((1.0 - b.tokens) / rate))
		if wait < 1 {
			wait = 1
		}
		return false, b.tokens, wait
	}

	b.tokens--
	b.seen = now
	return true, b.tokens, 0
}

type submissionLimiter struct {
	cfg      RateLimitConfig
	rate     float64
	capacity float64

	mu    sync.Mutex
	byIP  map[string]*tokenBucket
	swept time.Time
}

func newSubmissionLimiter(cfg RateLimitConfig) *submissionLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &submissionLimiter{
		cfg:      cfg,
		rate:     float64(cfg.RefillPerMin) / 60.0,
		capacity: float64(cfg.Burst),
		byIP:     make(map[string]*tokenBucket),
		swept:    time.Now(),
	}
}

func (l *submissionLimiter) bucket(ip string, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= time.Minute ||
		(l.cfg.MaxClients > 0 && len(l.byIP) >= l.cfg.MaxClients) {
		for key, b := range l.byIP {
			if now.Sub(b.seen) > l.cfg.IdleTTL {
				delete(l.byIP, key)
			}
		}
		l.swept = now
	}

	b := l.byIP[ip]
	if b == nil {
		b = &tokenBucket{tokens: l.capacity, refilled: now, seen: now}
		l.byIP[ip] = b
	}
	return b
}

// RateLimit returns a middleware enforcing the per-IP submission budget.
// Refusals carry Retry-After and the JSON error shape of the rest of the API.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newSubmissionLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			ip := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, retry := l.bucket(ip, now).take(now, l.rate, l.capacity)
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(remaining))))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"status":"error","error":"too many check submissions, slow down"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
