package backend

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	defaultRate = "20-S"
	limiterKey  = "backend"
)

// NewRateLimiter paces outbound backend calls. With a Redis client the budget
// is shared by every client process using that Redis; otherwise it is
// per-process.
func NewRateLimiter(rate string, rdb *redis.Client) (*limiter.Limiter, error) {
	if rate == "" {
		rate = defaultRate
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid backend rate %q: %w", rate, err)
	}

	var store limiter.Store
	if rdb != nil {
		store, err = redisstore.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix: "homehero:limiter",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create limiter store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return limiter.New(store, r), nil
}

func (c *Client) take(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	lctx, err := c.limiter.Get(ctx, limiterKey)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if lctx.Reached {
		return ErrRateLimited
	}
	return nil
}
