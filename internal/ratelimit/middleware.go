package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	dErrors "vigil/pkg/domainerrors"
	"vigil/pkg/httputil"
)

// Middleware rejects callers that exceed the limiter's window, keyed by
// client IP. X-Forwarded-For is trusted because the service runs behind the
// platform load balancer.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Allow(clientIP(r))
			if !res.Allowed {
				retryAfter := int64(time.Until(res.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many attempts"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
