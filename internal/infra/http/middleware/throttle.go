package middleware

import (
	"net/http"
	"sync"
	"time"
)

// tokenBucket refills at rate tokens per second up to burst.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64
	last   time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{tokens: float64(burst), burst: float64(burst), rate: rate, last: time.Now()}
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += b.rate * now.Sub(b.last).Seconds()
	b.last = now
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Throttle sheds load above rate requests per second with the given burst.
// rate <= 0 disables throttling.
func Throttle(rate float64, burst int, next http.Handler) http.Handler {
	if rate <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	bucket := newTokenBucket(rate, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !bucket.allow(time.Now()) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
