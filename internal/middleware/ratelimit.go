package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/webboard/webboard-api/internal/request"
)

const defaultLoginRate = "10-M"

// LoginRateLimit returns middleware limiting unauthenticated login attempts
// per client IP. When redisURL is set the counters live in Redis so multiple
// instances share them; otherwise they are kept in process memory.
func LoginRateLimit(redisURL, rateFormat string) (func(http.Handler) http.Handler, error) {
	if rateFormat == "" {
		rateFormat = defaultLoginRate
	}

	rate, err := limiter.NewRateFromFormatted(rateFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit format: %w", err)
	}

	var store limiter.Store
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		store, err = redisstore.NewStore(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(func(r *http.Request) string {
		return request.ClientIP(r)
	}))

	return mw.Handler, nil
}
