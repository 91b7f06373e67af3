package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/chore-tracker/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultRate is used when RATE_LIMIT is empty
const DefaultRate = "300-M"

// RedisRateLimiter holds the Redis client backing the rate limit store
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to Redis
func NewRedisRateLimiter(redisURL string) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateLimiter{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is reachable
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Middleware limits requests per client IP at the given rate ("300-M", "10-S", ...)
func (r *RedisRateLimiter) Middleware(formatted string) (func(http.Handler) http.Handler, error) {
	store, err := redisstore.NewStoreWithOptions(r.client, limiter.StoreOptions{
		Prefix: "chore_ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return RateLimit(store, formatted)
}

// RateLimit builds ulule/limiter middleware on top of any limiter store
func RateLimit(store limiter.Store, formatted string) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		}),
	)
	return mw.Handler, nil
}
