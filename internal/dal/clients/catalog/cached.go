package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/redis/go-redis/v9"
)

const restaurantKeyPrefix = "catalog:restaurant:"

type restaurantGetter interface {
	GetRestaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error)
}

// CachedClient is a read-through Redis cache in front of the catalog client.
// Only successful answers are cached; cache errors fall through to the
// catalog.
type CachedClient struct {
	next  restaurantGetter
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedClient creates a new CachedClient.
func NewCachedClient(next restaurantGetter, client *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{
		next:  next,
		redis: client,
		ttl:   ttl,
	}
}

func restaurantKey(restaurantID int64) string {
	return fmt.Sprintf("%s%d", restaurantKeyPrefix, restaurantID)
}

// GetRestaurant returns the cached restaurant or resolves and caches it.
func (c *CachedClient) GetRestaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error) {
	key := restaurantKey(restaurantID)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r restaurant.Restaurant
		if err := json.Unmarshal(cached, &r); err == nil {
			return r, nil
		}
		slog.WarnContext(ctx, "Dropping malformed cached restaurant", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "Restaurant cache read failed", "key", key, "error", err)
	}

	r, err := c.next.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return restaurant.Restaurant{}, err
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return r, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Restaurant cache write failed", "key", key, "error", err)
	}

	return r, nil
}
