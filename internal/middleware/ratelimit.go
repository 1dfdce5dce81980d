package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter 按客户端地址限制请求频率，空闲的限流器会被自动回收。
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache
}

// NewRateLimiter 创建每分钟允许 perMinute 次请求的限流器，perMinute <= 0 时返回 nil。
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: cache.New(limiterIdleTTL, limiterIdleTTL/2),
	}
}

// Allow 报告 key 对应的客户端此刻是否还有配额。
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	return rl.limiterFor(key).Allow()
}

// Handler 返回 chi 兼容的中间件，超出配额时响应 429。
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			utils.RespondError(w, http.StatusTooManyRequests, "too many messages, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	if existing, ok := rl.clients.Get(key); ok {
		limiter := existing.(*rate.Limiter)
		rl.clients.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	if err := rl.clients.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// 并发请求已创建了同一客户端的限流器
		if existing, ok := rl.clients.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return limiter
}

func (rl *RateLimiter) retryAfterSeconds() int {
	seconds := int(time.Duration(float64(time.Second) / float64(rl.limit)).Seconds())
	return max(seconds, 1)
}

// ClientKey identifies the caller by remote host, ignoring the port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
