package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateProfile bounds how often a single client IP may hit an endpoint group.
type RateProfile struct {
	PerSecond rate.Limit
	Burst     int
}

// LenientLimit suits read endpoints polled by the dashboard.
var LenientLimit = RateProfile{PerSecond: 20, Burst: 40}

// StrictLimit suits credential endpoints where brute force is the threat.
var StrictLimit = RateProfile{PerSecond: 1, Burst: 5}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	profile  RateProfile
}

// idle visitors are pruned lazily so the map cannot grow without bound.
const visitorTTL = 10 * time.Minute

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) > 1024 {
			for key, stale := range l.visitors {
				if now.Sub(stale.lastSeen) > visitorTTL {
					delete(l.visitors, key)
				}
			}
		}
		v = &visitor{limiter: rate.NewLimiter(l.profile.PerSecond, l.profile.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// RateLimitByIP rejects requests over the profile's budget with 429. Each
// wrapped handler group gets its own visitor table.
func RateLimitByIP(profile RateProfile) Middleware {
	l := &ipLimiter{visitors: make(map[string]*visitor), profile: profile}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the originating IP, honoring the first X-Forwarded-For
// entry when the console sits behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
