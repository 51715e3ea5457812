package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const (
	offersKey     = "storefront:offers:unexpired"
	generationKey = "storefront:offers:gen"
)

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// ARGV[3] is the TTL in milliseconds, 0 keeps the value until invalidated.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("get", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if ARGV[3] == "0" then
	redis.call("set", KEYS[1], ARGV[2])
else
	redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return 1
`)

// RedisOfferCache stores the unexpired offer list as one JSON value so every
// instance sharing the Redis sees the same invalidations.
type RedisOfferCache struct {
	client *redis.Client
	key    string
	genKey string
}

func NewRedisOfferCache(client *redis.Client) *RedisOfferCache {
	return &RedisOfferCache{client: client, key: offersKey, genKey: generationKey}
}

func (c *RedisOfferCache) Get(ctx context.Context) ([]*domain.Offer, bool, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var offers []*domain.Offer
	if err := json.Unmarshal([]byte(val), &offers); err != nil {
		return nil, false, err
	}
	return offers, true, nil
}

func (c *RedisOfferCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Set stores offers unless the cache was invalidated after generation was read.
// It reports whether the list was written.
func (c *RedisOfferCache) Set(ctx context.Context, generation int64, offers []*domain.Offer, ttl time.Duration) (bool, error) {
	if offers == nil {
		offers = []*domain.Offer{}
	}
	payload, err := json.Marshal(offers)
	if err != nil {
		return false, err
	}

	var ttlMillis int64
	if ttl > 0 {
		ttlMillis = max(ttl.Milliseconds(), 1)
	}
	written, err := setIfGeneration.Run(ctx, c.client, []string{c.key, c.genKey},
		strconv.FormatInt(generation, 10), payload, ttlMillis).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

func (c *RedisOfferCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}
