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
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// brokenStore fails every call.
type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errBroken }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errBroken
}
func (brokenStore) Delete(context.Context, string) error { return errBroken }

// ttlRecorder remembers the last ttl it was given.
type ttlRecorder struct {
	*MemoryStore
	ttl time.Duration
}

func (r *ttlRecorder) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.ttl = ttl
	return r.MemoryStore.Set(ctx, key, value, ttl)
}

func TestCacheFallsBackWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryStore(time.Minute, time.Minute)
	c := New(brokenStore{}, local, Config{Prefix: "p"})

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = local.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCacheWithoutFallbackReportsUnavailable(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{}, nil, Config{})

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, standarderrors.ErrCacheUnavailable)
	assert.ErrorIs(t, c.Set(ctx, "k", []byte("v"), 0), standarderrors.ErrCacheUnavailable)
	assert.ErrorIs(t, c.Delete(ctx, "k"), standarderrors.ErrCacheUnavailable)
}

func TestCacheDefaultTTL(t *testing.T) {
	rec := &ttlRecorder{MemoryStore: NewMemoryStore(time.Minute, time.Minute)}
	c := New(rec, nil, Config{DefaultTTL: 42 * time.Second})

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, 42*time.Second, rec.ttl)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), -time.Second))
	assert.Equal(t, 42*time.Second, rec.ttl)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Second))
	assert.Equal(t, time.Second, rec.ttl)
}

func TestCacheClearSkipsStoresWithoutClearer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	redisStore, err := DialRedis(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer redisStore.Close()

	local := NewMemoryStore(time.Minute, time.Minute)
	c := New(redisStore, local, Config{Prefix: "p"})

	require.NoError(t, redisStore.Set(ctx, "p:users:findAll", []byte("j[]"), time.Minute))
	require.NoError(t, local.Set(ctx, "p:users:findAll", []byte("j[]"), time.Minute))

	require.NoError(t, c.Clear(ctx))

	_, ok, _ := local.Get(ctx, "p:users:findAll")
	assert.False(t, ok)
	assert.True(t, mr.Exists("p:users:findAll"), "redis entries are left to expire")
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	c, closeFn, err := NewFromConfig(ctx, config.CacheConfig{DefaultTTL: time.Minute, KeyPrefix: "p", MaxEntries: 5})
	require.NoError(t, err)
	assert.IsType(t, &LRUStore{}, c.primary)
	assert.Nil(t, c.fallback)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	c, closeFn, err = NewFromConfig(ctx, config.CacheConfig{
		RedisEnabled: true, RedisAddr: mr.Addr(), DefaultTTL: time.Minute, Fallback: true,
	})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, c.primary)
	assert.IsType(t, &MemoryStore{}, c.fallback)
	assert.NoError(t, closeFn())

	_, _, err = NewFromConfig(ctx, config.CacheConfig{
		RedisEnabled: true, RedisAddr: "127.0.0.1:1", DefaultTTL: time.Minute,
	})
	assert.ErrorIs(t, err, standarderrors.ErrCacheUnavailable)
}
