package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// RateLimiter 按客户端 IP 做固定窗口限流。计数放在 Redis 中以便多实例共享；
// Redis 不可用时退化为进程内令牌桶。
type RateLimiter struct {
	redis  redisRateCounter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time

	local sync.Map // ip -> *rate.Limiter
}

// NewRateLimiter 构造限流器，prefix 用于区分不同路由组的计数。
func NewRateLimiter(client redisRateCounter, prefix string, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Middleware 返回 Gin 中间件，超限时返回 429。
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}

		if !l.allow(c.Request.Context(), ip, LoggerFromContext(c)) {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(ctx context.Context, ip string, log *slog.Logger) bool {
	if l.redis != nil {
		bucket := l.now().Unix() / int64(l.window.Seconds())
		key := fmt.Sprintf("rate:%s:%s:%d", l.prefix, ip, bucket)
		count, err := incrWithTTL(ctx, l.redis, key, l.window+time.Second)
		if err == nil {
			return count <= int64(l.limit)
		}
		log.Warn("redis rate limit unavailable, using local limiter", slog.Any("error", err))
	}
	return l.localLimiter(ip).AllowN(l.now(), 1)
}

func (l *RateLimiter) localLimiter(ip string) *rate.Limiter {
	if v, ok := l.local.Load(ip); ok {
		return v.(*rate.Limiter)
	}
	every := l.window / time.Duration(l.limit)
	lim, _ := l.local.LoadOrStore(ip, rate.NewLimiter(rate.Every(every), l.limit))
	return lim.(*rate.Limiter)
}
