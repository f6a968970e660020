package handler

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/minicrm/backend/internal/metrics"
)

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// Recoverer turns a panic in a handler into a 500 response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("panic in handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu             sync.Mutex
	limiters       map[string]*limiterEntry
	rate           rate.Limit
	burst          int
	idle           time.Duration
	maxEntries     int
	trustedProxies []*net.IPNet
	now            func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewIPRateLimiter allows perSecond requests per client with the given burst.
// X-Forwarded-For is honoured only when the direct peer is one of
// trustedProxies (CIDRs or single addresses).
func NewIPRateLimiter(perSecond float64, burst int, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       rate.Limit(perSecond),
		burst:      burst,
		idle:       10 * time.Minute,
		maxEntries: 10000,
		now:        time.Now,
	}
	for _, p := range trustedProxies {
		if ipnet := parseCIDROrIP(p); ipnet != nil {
			l.trustedProxies = append(l.trustedProxies, ipnet)
		} else {
			slog.Warn("ignoring invalid trusted proxy", "value", p)
		}
	}
	return l
}

func parseCIDROrIP(s string) *net.IPNet {
	s = strings.TrimSpace(s)
	if _, ipnet, err := net.ParseCIDR(s); err == nil {
		return ipnet
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= l.maxEntries {
			l.evictLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

// evictLocked drops idle entries, or the oldest one when none are idle.
func (l *IPRateLimiter) evictLocked(now time.Time) {
	var oldestIP string
	var oldest time.Time
	for ip, e := range l.limiters {
		if now.Sub(e.lastAccess) > l.idle {
			delete(l.limiters, ip)
			continue
		}
		if oldestIP == "" || e.lastAccess.Before(oldest) {
			oldestIP, oldest = ip, e.lastAccess
		}
	}
	if len(l.limiters) >= l.maxEntries && oldestIP != "" {
		delete(l.limiters, oldestIP)
	}
}

// Middleware returns an http.Handler that enforces rate limits.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.clientIP(r)
		lim := l.limiter(ip)
		res := lim.ReserveN(l.now(), 1)
		if !res.OK() || res.DelayFrom(l.now()) > 0 {
			retry := res.DelayFrom(l.now())
			res.CancelAt(l.now())
			metrics.ObserveAuthFailure("rate_limited")
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfterSeconds(retry))
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the peer address unless the peer is a trusted proxy. In
// that case X-Forwarded-For is read right to left and the first address that
// is not itself a trusted proxy wins, so entries prepended by the client are
// never used.
func (l *IPRateLimiter) clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	peer := net.ParseIP(remote)
	if peer == nil || !l.trusted(peer) {
		return remote
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		for i := len(parts) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(parts[i]))
			if ip == nil {
				break
			}
			if !l.trusted(ip) {
				return ip.String()
			}
		}
	}
	if xri := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); xri != nil {
		return xri.String()
	}
	return remote
}

func (l *IPRateLimiter) trusted(ip net.IP) bool {
	for _, n := range l.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
