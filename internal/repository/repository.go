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

// Package repository persists schema-described records in whichever backend
// the process was configured for.
//
// Callers program against Repository; New picks the backend-specific store
// from the concrete session type.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
)

// Fields maps schema field names onto values.
type Fields map[string]any

// Record is one stored entity. ID is always a string: a hex ObjectID for
// the document backend, a UUID for relational ones. Nil attributes are
// omitted from Fields.
type Record struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the record into a single object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["id"] = r.ID
	flat["createdAt"] = r.CreatedAt
	flat["updatedAt"] = r.UpdatedAt
	return json.Marshal(flat)
}

// String returns a text field or "".
func (r Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

// Bool returns a bool field or false.
func (r Record) Bool(field string) bool {
	b, _ := r.Fields[field].(bool)
	return b
}

// Time returns a time field, or nil when unset.
func (r Record) Time(field string) *time.Time {
	t, ok := r.Fields[field].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// Repository is the uniform persistence boundary.
//
// FindByID and FindByField return (nil, nil) when nothing matches. Update and
// Delete return a *standarderrors.NotFoundError instead.
type Repository interface {
	Create(ctx context.Context, fields Fields) (Record, error)
	FindAll(ctx context.Context) ([]Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	FindByField(ctx context.Context, name string, value any) (*Record, error)
	Update(ctx context.Context, id string, fields Fields) (Record, error)
	Delete(ctx context.Context, id string) error
	EnsureSchema(ctx context.Context) error
	Kind() config.BackendKind
}

// Options tunes every repository.
type Options struct {
	QueryTimeout time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now is replaced in tests.
	Now func() time.Time
}

// New returns the repository for the concrete session type.
func New(session database.Session, schema Schema, opts Options) (Repository, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	switch s := session.(type) {
	case *database.MongoSession:
		return NewDocument(NewMongoCollection(s.Collection(schema.Name)), schema, opts)
	case *database.PostgresSession:
		return NewPostgres(s.Pool(), schema, opts)
	case *database.MySQLSession:
		return NewMySQL(s.DB(), schema, opts)
	default:
		return nil, fmt.Errorf("unsupported session type %T", session)
	}
}
