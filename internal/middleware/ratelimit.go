package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"socialhub-backend/internal/cache"
	"socialhub-backend/internal/respond"
)

const (
	loginLimit     = 5
	loginWindow    = time.Minute
	registerLimit  = 5
	registerWindow = time.Minute
)

func RateLimitLogin(cacheClient cache.Client) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, "login", loginLimit, loginWindow)
}

func RateLimitRegister(cacheClient cache.Client) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, "register", registerLimit, registerWindow)
}

// rateLimit counts requests per client IP in fixed windows. A nil client or a
// counter error lets the request through.
func rateLimit(cacheClient cache.Client, name string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cacheClient == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rl:%s:%s", name, clientIP(r))
			count, err := cacheClient.IncrWithTTL(r.Context(), key, window)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("limiter", name).Msg("rate limit counter unavailable")
			}
			if err == nil && count > limit {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				respond.Error(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
