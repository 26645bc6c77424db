package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

const (
	redisDialTimeout = 3 * time.Second
	redisIOTimeout   = 2 * time.Second
	redisPingTimeout = 2 * time.Second

	tenantIndexKey = "logo:tenants"
)

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	logger.Info("redis client connected", slog.String("addr", opts.Addr))
	return client, nil
}

// RedisStore keeps each tenant's set under its own key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func logoKey(tenant string) string {
	return "logo:set:" + tenant
}

// Save writes the set and the tenant index in one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, set *logo.Set) error {
	if set == nil || set.Tenant == "" {
		return apperr.ValidationError("logo set has no tenant")
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode logo set: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, logoKey(set.Tenant), raw, 0)
		pipe.SAdd(ctx, tenantIndexKey, set.Tenant)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis logo save: %w", err)
	}
	return nil
}

// Load returns the tenant's set.
func (s *RedisStore) Load(ctx context.Context, tenant string) (*logo.Set, error) {
	raw, err := s.client.Get(ctx, logoKey(tenant)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("logo")
		}
		return nil, fmt.Errorf("redis logo load: %w", err)
	}

	var set logo.Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, apperr.Internal(fmt.Errorf("decode logo set for %s: %w", tenant, err))
	}
	return &set, nil
}

// Delete removes the tenant's set.
func (s *RedisStore) Delete(ctx context.Context, tenant string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, logoKey(tenant))
		pipe.SRem(ctx, tenantIndexKey, tenant)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis logo delete: %w", err)
	}
	if del.Val() == 0 {
		return apperr.NotFound("logo")
	}
	return nil
}

// Tenants returns the tenants that currently have a logo.
func (s *RedisStore) Tenants(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, tenantIndexKey).Result()
}
