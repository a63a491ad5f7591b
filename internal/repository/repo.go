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
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// row is a stored entity as read back from a backend, keyed by field name.
type row struct {
	id        string
	values    map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// store is the backend-specific half of a repository. Values are keyed by
// schema field name and already in canonical Go types.
type store interface {
	kind() config.BackendKind
	validID(id string) bool
	insert(ctx context.Context, values Fields, at time.Time) (string, error)
	all(ctx context.Context) ([]row, error)
	// byField looks up a single row; field "id" matches the primary key.
	byField(ctx context.Context, field string, value any) (*row, error)
	update(ctx context.Context, id string, set Fields, at time.Time) (bool, error)
	remove(ctx context.Context, id string) (bool, error)
	ensureSchema(ctx context.Context) error
	// duplicate reports whether err is a unique index violation.
	duplicate(err error) bool
}

// repo implements Repository on top of a store.
type repo struct {
	schema Schema
	store  store
	opts   Options
	log    *zap.SugaredLogger
}

func newRepo(s store, schema Schema, opts Options) (*repo, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = internal.DefaultQueryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &repo{
		schema: schema,
		store:  s,
		opts:   opts,
		log:    logger.For(logger.ComponentRepository).With("collection", schema.Name, "kind", s.kind()),
	}, nil
}

func (r *repo) Kind() config.BackendKind { return r.store.kind() }

// bound applies QueryTimeout unless ctx already expires earlier.
func (r *repo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= r.opts.QueryTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.QueryTimeout)
}

func (r *repo) now() time.Time { return canonicalTime(r.opts.Now()) }

func (r *repo) connErr(op string, err error) error {
	var (
		dup   *standarderrors.DuplicateError
		notFd *standarderrors.NotFoundError
		valid *standarderrors.ValidationError
	)
	if errors.As(err, &dup) || errors.As(err, &notFd) || errors.As(err, &valid) {
		return err
	}
	return &standarderrors.ConnectionError{Backend: string(r.store.kind()), Op: op, Err: err}
}

func (r *repo) hashSensitive(values Fields) error {
	for _, c := range r.schema.Columns {
		plain, ok := values[c.Field].(string)
		if !c.Sensitive || !ok {
			continue
		}
		hash, err := hashSecret(plain, r.opts.BcryptCost)
		if err != nil {
			return &standarderrors.ValidationError{Field: c.Field, Reason: err.Error()}
		}
		values[c.Field] = hash
	}
	return nil
}

// uniqueTargets returns the unique columns present with a value in values.
func (r *repo) uniqueTargets(values Fields) ([]Column, []string) {
	var cols []Column
	var keys []string
	for _, c := range r.schema.uniqueColumns() {
		v, ok := values[c.Field]
		if !ok || v == nil {
			continue
		}
		cols = append(cols, c)
		keys = append(keys, uniqueKey(r.schema.Name, c.Field, v))
	}
	return cols, keys
}

// checkUnique fails with a DuplicateError when another record holds one of
// the unique values. selfID is excluded.
func (r *repo) checkUnique(ctx context.Context, cols []Column, values Fields, selfID string) error {
	for _, c := range cols {
		existing, err := r.store.byField(ctx, c.Field, values[c.Field])
		if err != nil {
			return r.connErr("find", err)
		}
		if existing != nil && existing.id != selfID {
			return &standarderrors.DuplicateError{Collection: r.schema.Name, Field: c.Field, Value: values[c.Field]}
		}
	}
	return nil
}

// duplicateFrom maps a backend unique violation onto a DuplicateError.
func (r *repo) duplicateFrom(cols []Column, values Fields) error {
	field := "unique"
	var value any
	if len(cols) > 0 {
		field = cols[0].Field
		value = values[field]
	}
	return &standarderrors.DuplicateError{Collection: r.schema.Name, Field: field, Value: value}
}

func (r *repo) Create(ctx context.Context, fields Fields) (Record, error) {
	values, err := prepareCreate(r.schema, fields)
	if err != nil {
		return Record{}, err
	}
	if err = r.hashSensitive(values); err != nil {
		return Record{}, err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	cols, keys := r.uniqueTargets(values)
	unlock, err := lockUnique(ctx, keys)
	if err != nil {
		return Record{}, r.connErr("lock", err)
	}
	defer unlock()

	if err = r.checkUnique(ctx, cols, values, ""); err != nil {
		return Record{}, err
	}

	at := r.now()
	id, err := r.store.insert(ctx, values, at)
	if err != nil {
		if r.store.duplicate(err) {
			return Record{}, r.duplicateFrom(cols, values)
		}
		return Record{}, r.connErr("insert", err)
	}

	r.log.Debugw("Record created", "id", id)
	return toRecord(r.schema, row{id: id, values: values, createdAt: at, updatedAt: at}), nil
}

func (r *repo) FindAll(ctx context.Context) ([]Record, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.store.all(ctx)
	if err != nil {
		return nil, r.connErr("find", err)
	}
	out := make([]Record, 0, len(rows))
	for _, rw := range rows {
		out = append(out, toRecord(r.schema, rw))
	}
	return out, nil
}

func (r *repo) FindByID(ctx context.Context, id string) (*Record, error) {
	if !r.store.validID(id) {
		return nil, nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return r.find(ctx, "id", id)
}

func (r *repo) FindByField(ctx context.Context, name string, value any) (*Record, error) {
	if name == "id" {
		id, ok := value.(string)
		if !ok {
			return nil, &standarderrors.ValidationError{Field: "id", Reason: "must be a string"}
		}
		return r.FindByID(ctx, id)
	}

	c, ok := r.schema.column(name)
	if !ok {
		return nil, unknownField(name)
	}
	v, err := coerce(c, value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &standarderrors.ValidationError{Field: name, Reason: "cannot be matched against nil"}
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.find(ctx, name, v)
}

func (r *repo) find(ctx context.Context, field string, value any) (*Record, error) {
	rw, err := r.store.byField(ctx, field, value)
	if err != nil {
		return nil, r.connErr("find", err)
	}
	if rw == nil {
		return nil, nil
	}
	rec := toRecord(r.schema, *rw)
	return &rec, nil
}

func (r *repo) Update(ctx context.Context, id string, fields Fields) (Record, error) {
	set, err := prepareUpdate(r.schema, fields)
	if err != nil {
		return Record{}, err
	}
	if !r.store.validID(id) {
		return Record{}, &standarderrors.NotFoundError{Collection: r.schema.Name, ID: id}
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	existing, err := r.store.byField(ctx, "id", id)
	if err != nil {
		return Record{}, r.connErr("find", err)
	}
	if existing == nil {
		return Record{}, &standarderrors.NotFoundError{Collection: r.schema.Name, ID: id}
	}
	current := toRecord(r.schema, *existing)

	var changed []Column
	var keys []string
	for _, c := range r.schema.uniqueColumns() {
		v, ok := set[c.Field]
		if !ok || v == nil || reflect.DeepEqual(current.Fields[c.Field], v) {
			continue
		}
		changed = append(changed, c)
		keys = append(keys, uniqueKey(r.schema.Name, c.Field, v))
	}
	unlock, err := lockUnique(ctx, keys)
	if err != nil {
		return Record{}, r.connErr("lock", err)
	}
	defer unlock()

	if err = r.checkUnique(ctx, changed, set, id); err != nil {
		return Record{}, err
	}
	if err = r.hashSensitive(set); err != nil {
		return Record{}, err
	}

	at := r.now()
	if at.Before(current.CreatedAt) {
		at = current.CreatedAt
	}
	ok, err := r.store.update(ctx, id, set, at)
	if err != nil {
		if r.store.duplicate(err) {
			return Record{}, r.duplicateFrom(changed, set)
		}
		return Record{}, r.connErr("update", err)
	}
	if !ok {
		return Record{}, &standarderrors.NotFoundError{Collection: r.schema.Name, ID: id}
	}

	for name, v := range set {
		if v == nil {
			delete(current.Fields, name)
			continue
		}
		current.Fields[name] = v
	}
	current.UpdatedAt = at
	return current, nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	if !r.store.validID(id) {
		return &standarderrors.NotFoundError{Collection: r.schema.Name, ID: id}
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	removed, err := r.store.remove(ctx, id)
	if err != nil {
		return r.connErr("delete", err)
	}
	if !removed {
		return &standarderrors.NotFoundError{Collection: r.schema.Name, ID: id}
	}
	return nil
}

func (r *repo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.store.ensureSchema(ctx); err != nil {
		return r.connErr("ensure schema", err)
	}
	r.log.Infow("Schema ensured")
	return nil
}
