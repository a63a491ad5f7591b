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

package cache

import (
	"context"
	"time"
)

// Options describe one cached operation.
type Options struct {
	Scope     string
	Operation string
	// TTL <= 0 selects the cache default.
	TTL time.Duration
	// Key overrides key derivation.
	Key func(Args) string
}

// Func is a cacheable call.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Wrap memoises fn. A hit returns the decoded value without calling fn.
// Errors of fn are returned unchanged and never cached. Cache failures are
// logged and treated as misses. Concurrent misses of the same key each call
// fn.
func Wrap[T any](c *Cache, opts Options, fn Func[T]) Func[T] {
	if c == nil {
		return fn
	}
	return func(ctx context.Context, args Args) (T, error) {
		key, err := c.keyFor(opts, args)
		if err != nil {
			c.log.Warnw("Cannot derive cache key, bypassing cache", "scope", opts.Scope, "op", opts.Operation, "error", err)
			return fn(ctx, args)
		}

		data, ok, err := c.Get(ctx, key)
		switch {
		case err != nil:
			c.log.Debugw("Cache get failed, treating as miss", "key", key, "error", err)
		case ok:
			var cached T
			derr := c.codec.decode(data, &cached)
			if derr == nil {
				cacheHits.WithLabelValues(opts.Scope).Inc()
				return cached, nil
			}
			c.log.Warnw("Cannot decode cached value, treating as miss", "key", key, "error", derr)
		}
		cacheMisses.WithLabelValues(opts.Scope).Inc()

		result, err := fn(ctx, args)
		if err != nil {
			return result, err
		}

		encoded, err := c.codec.encode(result)
		if err != nil {
			c.log.Warnw("Cannot encode value for cache", "key", key, "error", err)
			return result, nil
		}
		if err = c.Set(ctx, key, encoded, opts.TTL); err != nil {
			c.log.Debugw("Cache set failed", "key", key, "error", err)
		}
		return result, nil
	}
}

func (c *Cache) keyFor(opts Options, args Args) (string, error) {
	if opts.Key != nil {
		return opts.Key(args), nil
	}
	return c.Key(opts.Scope, opts.Operation, args)
}

// Invalidate deletes the entry of one cached call.
func Invalidate(ctx context.Context, c *Cache, scope, operation string, args Args) error {
	if c == nil {
		return nil
	}
	key, err := c.Key(scope, operation, args)
	if err != nil {
		return err
	}
	return c.Delete(ctx, key)
}
