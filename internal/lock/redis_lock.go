package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig holds the timings of a Redis lock
type RedisConfig struct {
	KeyPrefix string
	TTL       time.Duration // lease length, renewed every TTL/3 while held
	Wait      time.Duration
	Retry     time.Duration
}

// Redis is a lease-based lock shared by every instance pointing at the same Redis.
type Redis struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

func NewRedis(client *redis.Client, config RedisConfig, logger *zap.Logger) *Redis {
	if config.Retry <= 0 {
		config.Retry = 25 * time.Millisecond
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Second
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "storefront:lock"
	}
	return &Redis{client: client, config: config, logger: logger}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := r.config.KeyPrefix + ":" + key
	token := uuid.NewString()

	var deadline time.Time
	if r.config.Wait > 0 {
		deadline = time.Now().Add(r.config.Wait)
	}

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.config.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return r.hold(redisKey, token), nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-time.After(r.config.Retry):
		}
	}
}

// hold keeps the lease alive until the returned release func runs
func (r *Redis) hold(redisKey, token string) func() {
	stop := make(chan struct{})
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		r.renew(redisKey, token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			deleted, err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Int()
			switch {
			case err != nil:
				r.logger.Warn("Failed to release lock",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			case deleted == 0:
				r.logger.Error("Lock lease was lost before release",
					zap.String("key", redisKey),
					zap.Duration("ttl", r.config.TTL),
				)
			}
		})
	}
}

func (r *Redis) renew(redisKey, token string, stop <-chan struct{}) {
	interval := max(r.config.TTL/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		extended, err := renewScript.Run(ctx, r.client, []string{redisKey}, token, max(r.config.TTL.Milliseconds(), 1)).Int()
		cancel()
		if err != nil {
			r.logger.Warn("Failed to renew lock", zap.String("key", redisKey), zap.Error(err))
			continue
		}
		if extended == 0 {
			r.logger.Error("Lock lease expired while held", zap.String("key", redisKey))
			return
		}
	}
}
