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
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type mysqlStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewMySQL returns a repository over a database/sql handle using the mysql
// driver.
func NewMySQL(db *sql.DB, schema Schema, opts Options) (Repository, error) {
	return newRepo(&mysqlStore{db: db, dialect: mysqlDialect(schema)}, schema, opts)
}

func (s *mysqlStore) kind() config.BackendKind { return config.RelationalB }

func (s *mysqlStore) validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *mysqlStore) insert(ctx context.Context, values Fields, at time.Time) (string, error) {
	id := uuid.NewString()
	stmt, args := s.dialect.insert(id, values, at)
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return "", err
	}
	return id, nil
}

func (s *mysqlStore) all(ctx context.Context) ([]row, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.selectAll())
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

func (s *mysqlStore) byField(ctx context.Context, field string, value any) (*row, error) {
	r, err := s.dialect.scanRow(s.db.QueryRowContext(ctx, s.dialect.selectBy(field), value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *mysqlStore) exec(ctx context.Context, stmt string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// update relies on the id pre-read of the caller: mysql reports zero
// affected rows when the new values equal the stored ones.
func (s *mysqlStore) update(ctx context.Context, id string, set Fields, at time.Time) (bool, error) {
	stmt, args := s.dialect.update(id, set, at)
	if _, err := s.exec(ctx, stmt, args...); err != nil {
		return false, err
	}
	r, err := s.byField(ctx, "id", id)
	return r != nil, err
}

func (s *mysqlStore) remove(ctx context.Context, id string) (bool, error) {
	return s.exec(ctx, s.dialect.delete(), id)
}

func (s *mysqlStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.createStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *mysqlStore) duplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
