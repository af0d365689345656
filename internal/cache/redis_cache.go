package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"butikpos/backend/internal/domain"
)

type RedisSessionCartCache struct {
	client *redis.Client
}

func NewRedisSessionCartCache(addr string, password string, db int) *RedisSessionCartCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSessionCartCache{client: client}
}

func (c *RedisSessionCartCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSessionCartCache) Close() error {
	return c.client.Close()
}

func cartKey(terminalID string) string {
	return "cart:" + terminalID
}

func (c *RedisSessionCartCache) Save(ctx context.Context, cart *domain.SessionCart, ttl time.Duration) error {
	if cart == nil {
		return nil
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cartKey(cart.TerminalID), payload, ttl).Err()
}

func (c *RedisSessionCartCache) Load(ctx context.Context, terminalID string) (*domain.SessionCart, bool, error) {
	val, err := c.client.Get(ctx, cartKey(terminalID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cart domain.SessionCart
	if err := json.Unmarshal([]byte(val), &cart); err != nil {
		return nil, false, err
	}
	return &cart, true, nil
}

func (c *RedisSessionCartCache) Clear(ctx context.Context, terminalID string) error {
	return c.client.Del(ctx, cartKey(terminalID)).Err()
}
