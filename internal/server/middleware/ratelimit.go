package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/server/handlers"
)

// MsgTooManyRequests ответ 429
const MsgTooManyRequests = "Too many requests, please try again later."

// visitorTTL через сколько неактивный IP удаляется из памяти
const visitorTTL = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов per-IP через token bucket
type RateLimiter struct {
	visitors map[string]*visitor
	logger   *slog.Logger
	now      func() time.Time
	limit    rate.Limit
	burst    int
	mu       sync.Mutex

	trustProxy bool
}

// NewRateLimiter создает limiter на perMinute запросов в минуту с заданным burst
func NewRateLimiter(perMinute, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		logger:   logger,
		now:      time.Now,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// TrustProxyHeaders включает учет X-Forwarded-For и X-Real-IP
// Только для сервера за reverse proxy, который перезаписывает эти заголовки
func (rl *RateLimiter) TrustProxyHeaders() *RateLimiter {
	rl.trustProxy = true
	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа (обычно IP адрес)
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Cleanup удаляет IP, не появлявшиеся дольше visitorTTL
func (rl *RateLimiter) Cleanup() {
	cutoff := rl.now().Add(-visitorTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Run периодически вызывает Cleanup до отмены ctx
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// Middleware ограничивает запросы к путям с префиксом prefix
// Остальные запросы проходят без учета
func (rl *RateLimiter) Middleware(prefix string, errs *handlers.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r, rl.trustProxy)
			if !rl.Allow(ip) {
				rl.logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "60")
				errs.WriteError(w, r, apperr.TooManyRequests(MsgTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP адрес клиента из запроса
// Заголовки прокси учитываются только при trustProxy, иначе RemoteAddr
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
