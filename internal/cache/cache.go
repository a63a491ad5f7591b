// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides a tiered response cache and a generic interceptor
// that memoises service reads.
//
// The primary store is redis when enabled and the in-process store
// otherwise. When the primary fails the in-process fallback, if enabled,
// serves the request instead.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// Config tunes the facade.
type Config struct {
	Prefix            string
	DefaultTTL        time.Duration
	OpTimeout         time.Duration
	CompressThreshold int
	HashKeys          bool
}

// Cache is the facade over a primary and an optional fallback store.
type Cache struct {
	primary  Store
	fallback Store
	cfg      Config
	codec    codec
	log      *zap.SugaredLogger
}

// New creates a facade. fallback may be nil.
func New(primary Store, fallback Store, cfg Config) *Cache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 500 * time.Millisecond
	}
	return &Cache{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		codec:    codec{threshold: cfg.CompressThreshold},
		log:      logger.For(logger.ComponentCache),
	}
}

// NewFromConfig builds the store tiers described by cfg. The returned close
// function releases the redis client, if any.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig) (*Cache, func() error, error) {
	var local Store
	if cfg.MaxEntries > 0 {
		lruStore, err := NewLRUStore(cfg.MaxEntries)
		if err != nil {
			return nil, nil, fmt.Errorf("create lru store: %w", err)
		}
		local = lruStore
	} else {
		local = NewMemoryStore(cfg.DefaultTTL, 10*time.Minute)
	}

	facadeCfg := Config{
		Prefix:            cfg.KeyPrefix,
		DefaultTTL:        cfg.DefaultTTL,
		OpTimeout:         cfg.OpTimeout,
		CompressThreshold: cfg.CompressThreshold,
		HashKeys:          cfg.HashKeys,
	}
	noop := func() error { return nil }

	if !cfg.RedisEnabled {
		return New(local, nil, facadeCfg), noop, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	redisStore, err := DialRedis(dialCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if !cfg.Fallback {
			return nil, nil, &standarderrors.CacheUnavailableError{Op: "dial", Err: err}
		}
		logger.For(logger.ComponentCache).Warnw("Redis unavailable, using in-process cache", "addr", cfg.RedisAddr, "error", err)
		return New(local, nil, facadeCfg), noop, nil
	}

	var fallback Store
	if cfg.Fallback {
		fallback = local
	}
	return New(redisStore, fallback, facadeCfg), redisStore.Close, nil
}

func storeName(s Store) string {
	switch s.(type) {
	case *RedisStore:
		return "redis"
	case *LRUStore:
		return "lru"
	case *MemoryStore:
		return "memory"
	default:
		return fmt.Sprintf("%T", s)
	}
}

func (c *Cache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.OpTimeout)
}

func (c *Cache) failed(s Store, op string, err error) {
	cacheErrors.WithLabelValues(storeName(s), op).Inc()
	c.log.Warnw("Cache store failed", "store", storeName(s), "op", op, "error", err)
}

// Key derives the canonical key under the configured prefix.
func (c *Cache) Key(scope, operation string, args Args) (string, error) {
	if c.cfg.HashKeys {
		return hashedKey(c.cfg.Prefix, scope, operation, args)
	}
	return Key(c.cfg.Prefix, scope, operation, args)
}

// Get returns the stored bytes and whether the key was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	value, ok, err := c.primary.Get(ctx, key)
	if err == nil {
		return value, ok, nil
	}
	c.failed(c.primary, "get", err)
	if c.fallback == nil {
		return nil, false, &standarderrors.CacheUnavailableError{Op: "get", Err: err}
	}
	value, ok, err = c.fallback.Get(ctx, key)
	if err != nil {
		c.failed(c.fallback, "get", err)
		return nil, false, &standarderrors.CacheUnavailableError{Op: "get", Err: err}
	}
	return value, ok, nil
}

// Set stores value for ttl; ttl <= 0 selects the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	err := c.primary.Set(ctx, key, value, ttl)
	if err == nil {
		return nil
	}
	c.failed(c.primary, "set", err)
	if c.fallback == nil {
		return &standarderrors.CacheUnavailableError{Op: "set", Err: err}
	}
	if err = c.fallback.Set(ctx, key, value, ttl); err != nil {
		c.failed(c.fallback, "set", err)
		return &standarderrors.CacheUnavailableError{Op: "set", Err: err}
	}
	return nil
}

// Delete removes key from every tier so a fallback copy cannot resurface.
func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	err := c.primary.Delete(ctx, key)
	if err != nil {
		c.failed(c.primary, "delete", err)
	}
	if c.fallback != nil {
		if ferr := c.fallback.Delete(ctx, key); ferr != nil {
			c.failed(c.fallback, "delete", ferr)
		}
		return nil
	}
	if err != nil {
		return &standarderrors.CacheUnavailableError{Op: "delete", Err: err}
	}
	return nil
}

// Clear drops every entry of the stores that support it. Stores without a
// Clearer, such as redis, are skipped and their entries expire by TTL.
func (c *Cache) Clear(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var errs []error
	for _, s := range []Store{c.primary, c.fallback} {
		if s == nil {
			continue
		}
		clearer, ok := s.(Clearer)
		if !ok {
			c.log.Debugw("Store does not support clear, entries expire by TTL", "store", storeName(s))
			continue
		}
		if err := clearer.Clear(ctx); err != nil {
			c.failed(s, "clear", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &standarderrors.CacheUnavailableError{Op: "clear", Err: errors.Join(errs...)}
	}
	return nil
}
