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

// Package repositorytest provides an in-memory document collection for
// exercising the document repository without a mongo server.
package repositorytest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// duplicateKeyCode is the server error code of a unique index violation.
const duplicateKeyCode = 11000

// MemoryCollection is a concurrency-safe, in-memory DocumentCollection. Like
// the server it stores timestamps as primitive.DateTime and enforces unique
// indexes created through EnsureUniqueIndex.
type MemoryCollection struct {
	mu      sync.RWMutex
	docs    []bson.M
	unique  map[string]bool
	failure error
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{unique: map[string]bool{}}
}

// FailWith makes every following call return err until reset with nil.
func (m *MemoryCollection) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Len returns the number of stored documents.
func (m *MemoryCollection) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Indexes returns the fields with a unique index.
func (m *MemoryCollection) Indexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.unique))
	for field := range m.unique {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

func toStored(v any) any {
	switch t := v.(type) {
	case time.Time:
		return primitive.NewDateTimeFromTime(t)
	default:
		return v
	}
}

func clone(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func matches(doc bson.M, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, toStored(want)) {
			return false
		}
	}
	return true
}

func duplicateKey(field string, value any) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    duplicateKeyCode,
		Message: fmt.Sprintf("E11000 duplicate key error dup key: { %s: %v }", field, value),
	}}}
}

// conflict reports the first unique field of doc already held by another
// document. Caller holds the lock.
func (m *MemoryCollection) conflict(doc bson.M, skip int) error {
	for i, other := range m.docs {
		if i == skip {
			continue
		}
		if reflect.DeepEqual(other["_id"], doc["_id"]) {
			return duplicateKey("_id", doc["_id"])
		}
		for field := range m.unique {
			v, ok := doc[field]
			if !ok || v == nil {
				continue
			}
			if reflect.DeepEqual(other[field], v) {
				return duplicateKey(field, v)
			}
		}
	}
	return nil
}

func (m *MemoryCollection) InsertOne(_ context.Context, doc bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	stored := make(bson.M, len(doc))
	for k, v := range doc {
		stored[k] = toStored(v)
	}
	if err := m.conflict(stored, -1); err != nil {
		return err
	}
	m.docs = append(m.docs, stored)
	return nil
}

func (m *MemoryCollection) FindOne(_ context.Context, filter bson.M) (bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}
	for _, doc := range m.docs {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, nil
}

func (m *MemoryCollection) Find(_ context.Context, filter bson.M, sortBy string) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}
	var out []bson.M
	for _, doc := range m.docs {
		if matches(doc, filter) {
			out = append(out, clone(doc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i][sortBy].(primitive.DateTime)
		b, _ := out[j][sortBy].(primitive.DateTime)
		return a < b
	})
	return out, nil
}

func (m *MemoryCollection) UpdateOne(_ context.Context, filter bson.M, set bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return 0, m.failure
	}
	for i, doc := range m.docs {
		if !matches(doc, filter) {
			continue
		}
		updated := clone(doc)
		for k, v := range set {
			if v == nil {
				delete(updated, k)
				continue
			}
			updated[k] = toStored(v)
		}
		if err := m.conflict(updated, i); err != nil {
			return 0, err
		}
		m.docs[i] = updated
		return 1, nil
	}
	return 0, nil
}

func (m *MemoryCollection) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return 0, m.failure
	}
	for i, doc := range m.docs {
		if matches(doc, filter) {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MemoryCollection) EnsureUniqueIndex(_ context.Context, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	m.unique[field] = true
	return nil
}
