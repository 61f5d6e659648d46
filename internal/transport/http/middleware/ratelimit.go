package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"ragchat/internal/logger"
	"ragchat/internal/transport/http/response"
)

// RateLimit allows at most limit requests per owner in each fixed window.
// It must run after AuthJWT. Redis errors let the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Minute
	}
	return func(c *gin.Context) {
		owner, ok := OwnerID(c)
		if rdb == nil || limit <= 0 || !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ragchat:ratelimit:owner:%d", owner)
		count, err := countHit(ctx, rdb, key, window)
		if err != nil {
			logger.Warn("rate limit check failed", "owner_id", owner, "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-count, 10))
		c.Next()
	}
}

// countHit increments the counter at key and makes sure it expires. A
// counter found without a TTL gets one, so a failed EXPIRE never blocks an
// owner for good.
func countHit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			_ = rdb.Del(ctx, key).Err()
			return 0, fmt.Errorf("set rate limit expiry failed: %w", err)
		}
	}
	return incr.Val(), nil
}
