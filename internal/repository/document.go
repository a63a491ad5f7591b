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

package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

const (
	docCreatedAt = "createdAt"
	docUpdatedAt = "updatedAt"
)

// DocumentCollection is the subset of a mongo collection the document store
// needs. FindOne returns (nil, nil) when nothing matches.
type DocumentCollection interface {
	InsertOne(ctx context.Context, doc bson.M) error
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	Find(ctx context.Context, filter bson.M, sortBy string) ([]bson.M, error)
	UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	EnsureUniqueIndex(ctx context.Context, field string) error
}

type mongoCollection struct {
	c *mongo.Collection
}

// NewMongoCollection adapts a driver collection.
func NewMongoCollection(c *mongo.Collection) DocumentCollection {
	return &mongoCollection{c: c}
}

func (m *mongoCollection) InsertOne(ctx context.Context, doc bson.M) error {
	_, err := m.c.InsertOne(ctx, doc)
	return err
}

func (m *mongoCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := m.c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return doc, err
}

func (m *mongoCollection) Find(ctx context.Context, filter bson.M, sortBy string) ([]bson.M, error) {
	cursor, err := m.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: sortBy, Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *mongoCollection) UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	update := bson.M{}
	unset := bson.M{}
	for k, v := range set {
		if v == nil {
			unset[k] = ""
			continue
		}
		update[k] = v
	}
	doc := bson.M{"$set": update}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := m.c.UpdateOne(ctx, filter, doc)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (m *mongoCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := m.c.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *mongoCollection) EnsureUniqueIndex(ctx context.Context, field string) error {
	_, err := m.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

type documentStore struct {
	coll   DocumentCollection
	schema Schema
}

// NewDocument returns a repository over a document collection.
func NewDocument(coll DocumentCollection, schema Schema, opts Options) (Repository, error) {
	return newRepo(&documentStore{coll: coll, schema: schema}, schema, opts)
}

func (s *documentStore) kind() config.BackendKind { return config.Document }

func (s *documentStore) validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func (s *documentStore) insert(ctx context.Context, values Fields, at time.Time) (string, error) {
	id := primitive.NewObjectID()
	doc := bson.M{"_id": id, docCreatedAt: at, docUpdatedAt: at}
	for k, v := range values {
		doc[k] = v
	}
	if err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (s *documentStore) all(ctx context.Context) ([]row, error) {
	docs, err := s.coll.Find(ctx, bson.M{}, docCreatedAt)
	if err != nil {
		return nil, err
	}
	rows := make([]row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, s.toRow(doc))
	}
	return rows, nil
}

func (s *documentStore) filter(field string, value any) (bson.M, bool) {
	if field != "id" {
		return bson.M{field: value}, true
	}
	id, _ := value.(string)
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid}, true
}

func (s *documentStore) byField(ctx context.Context, field string, value any) (*row, error) {
	filter, ok := s.filter(field, value)
	if !ok {
		return nil, nil
	}
	doc, err := s.coll.FindOne(ctx, filter)
	if err != nil || doc == nil {
		return nil, err
	}
	r := s.toRow(doc)
	return &r, nil
}

func (s *documentStore) update(ctx context.Context, id string, set Fields, at time.Time) (bool, error) {
	filter, ok := s.filter("id", id)
	if !ok {
		return false, nil
	}
	doc := bson.M{docUpdatedAt: at}
	for k, v := range set {
		doc[k] = v
	}
	matched, err := s.coll.UpdateOne(ctx, filter, doc)
	return matched > 0, err
}

func (s *documentStore) remove(ctx context.Context, id string) (bool, error) {
	filter, ok := s.filter("id", id)
	if !ok {
		return false, nil
	}
	deleted, err := s.coll.DeleteOne(ctx, filter)
	return deleted > 0, err
}

func (s *documentStore) ensureSchema(ctx context.Context) error {
	for _, c := range s.schema.uniqueColumns() {
		if err := s.coll.EnsureUniqueIndex(ctx, c.Field); err != nil {
			return err
		}
	}
	return nil
}

func (s *documentStore) duplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func (s *documentStore) toRow(doc bson.M) row {
	r := row{values: make(map[string]any, len(doc))}
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		r.id = id.Hex()
	case string:
		r.id = id
	}
	r.createdAt = storageTime(doc[docCreatedAt])
	r.updatedAt = storageTime(doc[docUpdatedAt])
	for _, c := range s.schema.Columns {
		if v, ok := doc[c.Field]; ok {
			r.values[c.Field] = v
		}
	}
	return r
}
