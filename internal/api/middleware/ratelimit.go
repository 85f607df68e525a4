package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	appErr "github.com/fdk/resource-service/pkg/errors"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.visitors[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = e
	}
	e.last = now
	return e.limiter.AllowN(now, 1)
}

func (l *ipLimiter) evictIdle(now time.Time, idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.visitors {
		if now.Sub(e.last) > idle {
			delete(l.visitors, ip)
		}
	}
}

// clientIP is the address the limiter keys on. Each trusted proxy appends the address it saw
// to X-Forwarded-For, so the entry trustedHops from the right is the client as seen by the
// outermost proxy and anything left of it is client supplied. With no trusted hops the header
// is ignored.
func clientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, v := range r.Header.Values("X-Forwarded-For") {
			for _, hop := range strings.Split(v, ",") {
				if hop = strings.TrimSpace(hop); hop != "" {
					hops = append(hops, hop)
				}
			}
		}
		if len(hops) >= trustedHops {
			return hops[len(hops)-trustedHops]
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies a per-IP token bucket. trustedHops is the number of reverse proxies in
// front of the service; 0 keys on the connection address. Idle visitors are dropped every few
// minutes.
func RateLimit(rps float64, burst, trustedHops int) func(http.Handler) http.Handler {
	l := &ipLimiter{visitors: map[string]*limiterEntry{}, rps: rate.Limit(rps), burst: burst}
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for now := range t.C {
			l.evictIdle(now, 10*time.Minute)
		}
	}()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r, trustedHops), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, appErr.CodeUnavailable, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
