package middleware

import (
	"context"
	"fmt"
	"net/http"
	"rientro/models"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis     *redis.Client
	Requests  int           // Number of requests allowed
	Window    time.Duration // Time window
	KeyPrefix string        // Redis key prefix
	SkipPaths []string      // Paths to skip rate limiting
}

// RateLimiter provides per-user-or-IP rate limiting backed by Redis.
type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}

	return &RateLimiter{
		config: config,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.config.Redis == nil || rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.getKey(c)

		allowed, remaining, resetTime, err := rl.checkRateLimit(c.Request.Context(), key)
		if err != nil {
			logrus.Errorf("Rate limit check failed: %v", err)
			// Allow request to proceed on error
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "RATE_LIMIT_EXCEEDED",
				Message: "Rate limit exceeded",
				Code:    models.ErrCodeRateLimit,
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	if userID := c.GetString("userID"); userID != "" {
		return fmt.Sprintf("%s:user:%s", rl.config.KeyPrefix, userID)
	}
	return fmt.Sprintf("%s:ip:%s", rl.config.KeyPrefix, c.ClientIP())
}

// checkRateLimit implements a fixed-window counter in Redis.
func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowKey := fmt.Sprintf("%s:%d", key, time.Now().Unix()/int64(rl.config.Window.Seconds()))

	count, err := rl.config.Redis.Incr(ctx, windowKey).Result()
	if err != nil {
		return true, 0, time.Time{}, err
	}

	if count == 1 {
		if err := rl.config.Redis.Expire(ctx, windowKey, rl.config.Window).Err(); err != nil {
			return true, 0, time.Time{}, err
		}
	}

	resetTime := time.Now().Truncate(rl.config.Window).Add(rl.config.Window)
	remaining := rl.config.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= int64(rl.config.Requests), remaining, resetTime, nil
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, p := range rl.config.SkipPaths {
		if p == path {
			return true
		}
	}
	return false
}
