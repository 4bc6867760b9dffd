package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/tair/payment-service/internal/payment/domain"
)

const keyPrefix = "payment:"

// OpTimeout bounds every cache call. A slow cache is treated as a miss.
const OpTimeout = 200 * time.Millisecond

// putScript writes the payment unless the cached entry carries a higher status rank.
// KEYS[1] key, ARGV[1] payload, ARGV[2] rank, ARGV[3] ttl in milliseconds.
var putScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rank')
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'rank', ARGV[2], 'data', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_cache_hits_total",
		Help: "Total number of payment cache hits",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_cache_misses_total",
		Help: "Total number of payment cache misses",
	})

	cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_cache_errors_total",
			Help: "Total number of payment cache errors",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheErrors)
}

// ClientOptions configures a Redis client for the cache: short network
// timeouts, no retries, and context deadlines honoured.
func ClientOptions(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:                  addr,
		Password:              password,
		DB:                    db,
		DialTimeout:           OpTimeout,
		ReadTimeout:           OpTimeout,
		WriteTimeout:          OpTimeout,
		PoolTimeout:           OpTimeout,
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	}
}

// RedisCache implements domain.PaymentCache on Redis hashes
type RedisCache struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, timeout: OpTimeout}
}

func (c *RedisCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Key returns the Redis key holding the payment
func Key(id string) string {
	return keyPrefix + id
}

func (c *RedisCache) Lookup(ctx context.Context, id string) (*domain.Payment, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	data, err := c.client.HGet(ctx, Key(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.Inc()
			return nil, domain.ErrCacheMiss
		}
		cacheErrors.WithLabelValues("lookup").Inc()
		return nil, fmt.Errorf("cache lookup %s: %w", id, err)
	}

	var payment domain.Payment
	if err := json.Unmarshal(data, &payment); err != nil {
		cacheErrors.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("cache decode %s: %w", id, err)
	}

	cacheHits.Inc()
	return &payment, nil
}

// Put stores the payment for ttl. An entry of a later status is left in place.
func (c *RedisCache) Put(ctx context.Context, payment *domain.Payment, ttl time.Duration) error {
	data, err := json.Marshal(payment)
	if err != nil {
		cacheErrors.WithLabelValues("encode").Inc()
		return fmt.Errorf("cache encode %s: %w", payment.PaymentID, err)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	err = putScript.Run(ctx, c.client,
		[]string{Key(payment.PaymentID)},
		data,
		strconv.Itoa(payment.Status.Rank()),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Err()
	if err != nil {
		cacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("cache put %s: %w", payment.PaymentID, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		cacheErrors.WithLabelValues("invalidate").Inc()
		return fmt.Errorf("cache invalidate %s: %w", id, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	return c.client.Ping(ctx).Err()
}
