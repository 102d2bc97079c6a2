package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aim-injury/aim-intake/internal/ratelimit"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

// Route key prefixes. Each route family gets its own window per client.
const (
	KeyChat       = "ai-chat"
	KeyEvents     = "events"
	KeyBooking    = "booking"
	KeyIntake     = "intake"
	KeyIntakeSave = "intake-save"
)

// RateLimit rejects requests once the client exceeds the limiter's window
// for prefix. Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, prefix string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := prefix + ":" + ClientID(r)
			res, err := limiter.Check(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit check failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(time.RFC3339))
			if !res.Allowed {
				logger.Warn("rate limit exceeded", "key", key)
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies the caller: first X-Forwarded-For hop, then X-Real-Ip
// (set by chi's RealIP), then the remote address.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}
