package pricefeed

import (
	"context"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"github.com/shopspring/decimal"
)

// RedisCache shares cached rates between storefront replicas.
type RedisCache struct {
	client radix.Client
}

func NewRedisCache(client radix.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	var raw string
	mn := radix.MaybeNil{Rcv: &raw}
	if err := c.client.Do(radix.Cmd(&mn, "GET", key)); err != nil {
		return decimal.Zero, false, err
	}
	if mn.Nil || raw == "" {
		return decimal.Zero, false, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		_ = c.client.Do(radix.Cmd(nil, "DEL", key))
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}

func (c *RedisCache) Set(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		return nil
	}
	if err := c.client.Do(radix.FlatCmd(nil, "SET", key, rate.String(), "PX", ms)); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
