// Package rediskv backs the key-value surface with Redis for deployments
// where the core runs hosted (previews, integration rigs) instead of on a
// device with local disk.
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/petalworks/storefront-core/pkg/config"
	"github.com/petalworks/storefront-core/pkg/storage"
)

const keyNamespace = "storefront:kv"

// Store is a Redis-backed implementation of storage.KV.
type Store struct {
	client *redis.Client
}

// New bootstraps a Redis client from config and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Get returns the value stored under key, mapping redis.Nil to absence.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, namespacedKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set stores the value under key with no expiry; snapshots live until the
// next mutation overwrites them.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, namespacedKey(key), value, 0).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func namespacedKey(key string) string {
	return fmt.Sprintf("%s:%s", keyNamespace, key)
}

var _ storage.KV = (*Store)(nil)
