package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/utilities"
)

func keyFunc(c *gin.Context) string {
	id, err := identity.FromContext(c)
	if err != nil {
		return "ip: " + c.ClientIP()
	}
	return "user: " + id.UserID.String()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	retry := int(math.Ceil(time.Until(info.ResetTime).Seconds()))
	c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, utilities.ErrorResponse{
		Error: "Too many requests. Please try again later.",
	})
}

// RateLimiterMiddleware limits each caller to reqPerSec requests. Callers
// are keyed by user when authenticated and by IP otherwise. A non-nil rdb
// shares the budget across instances.
func RateLimiterMiddleware(reqPerSec uint, rdb *redis.Client) gin.HandlerFunc {
	var store ratelimit.Store
	if rdb != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: rdb,
			Rate:        time.Second,
			Limit:       reqPerSec,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: reqPerSec,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		KeyFunc:      keyFunc,
		ErrorHandler: errorHandler,
	})
}

// NewRedisClient parses url and returns a client, or nil when url is empty
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	slog.Info("rate limiter using redis store", "addr", opts.Addr)
	return redis.NewClient(opts), nil
}
