package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"zentari/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// With an empty addr or a failed ping the limiters count in process instead.
func InitRedisRateLimiter(addr, password string, db int) error {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis %s: %w", addr, err)
	}
	redisClient = client
	return nil
}

// CloseRedis releases the shared client.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}

// RedisPinger reports Redis health for readiness checks; nil when unused.
func RedisPinger() func(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	client := redisClient
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// counter increments key in Redis, falling back to the local limiter.
func counter(ctx context.Context, local *localLimiter, key string, window time.Duration) int64 {
	if redisClient != nil {
		val, err := redisClient.Incr(ctx, key).Result()
		if err == nil {
			if val == 1 {
				redisClient.Expire(ctx, key, window)
			}
			return val
		}
		logger.WithContext(ctx).Warn("rate limiter redis error, counting locally", "error", err)
	}
	RLFallback.Inc()
	return local.allow(key, window)
}

// RedisRateLimit implements a fixed-window rate limiter per client IP using
// Redis INCR/EXPIRE. key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter()
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		val := counter(c.Request.Context(), local, key, window)

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// UserRateLimit limits actions per authenticated user rather than per IP.
// It must run after JWT.
func UserRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter()
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		key := "action_rl:" + userID + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		val := counter(c.Request.Context(), local, key, window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-val), 10))

		if val > int64(maxActions) {
			RLBlocked.WithLabelValues("user:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "action rate limit exceeded",
				"code":        "rate_limited",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("user:" + c.FullPath()).Inc()
		c.Next()
	}
}
