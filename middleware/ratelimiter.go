package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimiter limits requests per client IP. Counters are shared through
// Redis when a client is given so limits hold across instances.
func RateLimiter(rdb *redis.Client, perMinute int64, logger *zap.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 120
	}
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	store := memory.NewStore()
	if rdb != nil {
		shared, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix: "church_limiter",
		})
		if err != nil {
			logger.Warn("redis rate-limit store unavailable, using memory", zap.Error(err))
		} else {
			store = shared
		}
	}

	return ginlimiter.NewMiddleware(limiter.New(store, rate))
}
