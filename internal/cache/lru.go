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

	lru "github.com/hashicorp/golang-lru"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUStore is a bounded in-process store. Recency and frequency decide what
// is evicted once the bound is reached.
type LRUStore struct {
	arc *lru.ARCCache
	now func() time.Time
}

func NewLRUStore(size int) (*LRUStore, error) {
	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &LRUStore{arc: arc, now: time.Now}, nil
}

func (l *LRUStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.arc.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(lruEntry)
	if !l.now().Before(entry.expiresAt) {
		l.arc.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (l *LRUStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	l.arc.Add(key, lruEntry{value: stored, expiresAt: l.now().Add(ttl)})
	return nil
}

func (l *LRUStore) Delete(_ context.Context, key string) error {
	l.arc.Remove(key)
	return nil
}

func (l *LRUStore) Clear(_ context.Context) error {
	l.arc.Purge()
	return nil
}

// Len returns the number of entries, expired ones included.
func (l *LRUStore) Len() int {
	return l.arc.Len()
}
