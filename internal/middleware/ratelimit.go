package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"qfront/internal/ratelimit"
)

// RateLimiter enforces a per-client-IP token bucket. When the limit is
// exceeded it responds 429 with a Retry-After header.
//
// Only RemoteAddr is used; X-Forwarded-For is ignored so the limit cannot be
// bypassed by header spoofing.
func RateLimiter(clients *ratelimit.Clients) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.HostKey(r.RemoteAddr)
			ok, retry := clients.Allow(ip)
			if !ok {
				writeTooManyRequests(w, retry)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(clients.Burst()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(clients.Remaining(ip)))
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, retry time.Duration) {
	if retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}
