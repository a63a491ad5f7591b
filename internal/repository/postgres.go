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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

// pgUniqueViolation is the SQLSTATE of a unique index violation.
const pgUniqueViolation = "23505"

// PgxQuerier is the subset of a pgx pool the postgres store needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	db      PgxQuerier
	dialect sqlDialect
}

// NewPostgres returns a repository over a pgx pool.
func NewPostgres(db PgxQuerier, schema Schema, opts Options) (Repository, error) {
	return newRepo(&postgresStore{db: db, dialect: postgresDialect(schema)}, schema, opts)
}

func (s *postgresStore) kind() config.BackendKind { return config.RelationalA }

func (s *postgresStore) validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *postgresStore) insert(ctx context.Context, values Fields, at time.Time) (string, error) {
	id := uuid.NewString()
	stmt, args := s.dialect.insert(id, values, at)
	if _, err := s.db.Exec(ctx, stmt, args...); err != nil {
		return "", err
	}
	return id, nil
}

func (s *postgresStore) all(ctx context.Context) ([]row, error) {
	rows, err := s.db.Query(ctx, s.dialect.selectAll())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		r, err := s.dialect.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *postgresStore) byField(ctx context.Context, field string, value any) (*row, error) {
	r, err := s.dialect.scanRow(s.db.QueryRow(ctx, s.dialect.selectBy(field), value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *postgresStore) update(ctx context.Context, id string, set Fields, at time.Time) (bool, error) {
	stmt, args := s.dialect.update(id, set, at)
	tag, err := s.db.Exec(ctx, stmt, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *postgresStore) remove(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, s.dialect.delete(), id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *postgresStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.createStatements() {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) duplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
