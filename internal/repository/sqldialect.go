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
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	sqlID        = "id"
	sqlCreatedAt = "created_at"
	sqlUpdatedAt = "updated_at"
)

// sqlDialect renders statements for one table in one SQL flavour.
type sqlDialect struct {
	schema      Schema
	quote       func(string) string
	placeholder func(n int) string
	// idSelect renders the primary key as text.
	idSelect string
	types    map[ColumnType]string
	idType   string
	timeType string
	// inlineUnique puts unique keys into CREATE TABLE instead of separate
	// CREATE UNIQUE INDEX statements.
	inlineUnique bool
}

func postgresDialect(schema Schema) sqlDialect {
	return sqlDialect{
		schema:      schema,
		quote:       pq.QuoteIdentifier,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		idSelect:    sqlID + "::text",
		types: map[ColumnType]string{
			TypeText: "TEXT",
			TypeBool: "BOOLEAN",
			TypeTime: "TIMESTAMPTZ",
		},
		idType:   "UUID",
		timeType: "TIMESTAMPTZ",
	}
}

func mysqlDialect(schema Schema) sqlDialect {
	return sqlDialect{
		schema: schema,
		quote: func(s string) string {
			return "`" + strings.ReplaceAll(s, "`", "``") + "`"
		},
		placeholder: func(int) string { return "?" },
		idSelect:    sqlID,
		types: map[ColumnType]string{
			TypeText: "VARCHAR(255)",
			TypeBool: "BOOLEAN",
			TypeTime: "DATETIME(3)",
		},
		idType:       "CHAR(36)",
		timeType:     "DATETIME(3)",
		inlineUnique: true,
	}
}

func (d sqlDialect) table() string { return d.quote(d.schema.Name) }

// selectList is the projection shared by every read: id, schema columns in
// declaration order, created_at, updated_at.
func (d sqlDialect) selectList() string {
	cols := make([]string, 0, len(d.schema.Columns)+3)
	cols = append(cols, d.idSelect)
	for _, c := range d.schema.Columns {
		cols = append(cols, d.quote(c.columnName()))
	}
	cols = append(cols, sqlCreatedAt, sqlUpdatedAt)
	return strings.Join(cols, ", ")
}

func (d sqlDialect) selectAll() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC", d.selectList(), d.table(), sqlCreatedAt)
}

func (d sqlDialect) selectBy(field string) string {
	column := sqlID
	if c, ok := d.schema.column(field); ok {
		column = d.quote(c.columnName())
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1", d.selectList(), d.table(), column, d.placeholder(1))
}

// insert renders the statement and its arguments. Only non-nil values are
// written so column defaults and NULLs stay untouched.
func (d sqlDialect) insert(id string, values Fields, at time.Time) (string, []any) {
	cols := []string{sqlID}
	args := []any{id}
	for _, c := range d.schema.Columns {
		v, ok := values[c.Field]
		if !ok || v == nil {
			continue
		}
		cols = append(cols, d.quote(c.columnName()))
		args = append(args, v)
	}
	cols = append(cols, sqlCreatedAt, sqlUpdatedAt)
	args = append(args, at, at)

	marks := make([]string, len(args))
	for i := range args {
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.table(), strings.Join(cols, ", "), strings.Join(marks, ", ")), args
}

func (d sqlDialect) update(id string, set Fields, at time.Time) (string, []any) {
	var assignments []string
	var args []any
	for _, c := range d.schema.Columns {
		v, ok := set[c.Field]
		if !ok {
			continue
		}
		args = append(args, v)
		assignments = append(assignments, fmt.Sprintf("%s = %s", d.quote(c.columnName()), d.placeholder(len(args))))
	}
	args = append(args, at)
	assignments = append(assignments, fmt.Sprintf("%s = %s", sqlUpdatedAt, d.placeholder(len(args))))
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", d.table(), strings.Join(assignments, ", "), sqlID, d.placeholder(len(args))), args
}

func (d sqlDialect) delete() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", d.table(), sqlID, d.placeholder(1))
}

func (d sqlDialect) uniqueIndexName(c Column) string {
	return fmt.Sprintf("%s_%s_key", d.schema.Name, c.columnName())
}

// createStatements returns the idempotent DDL for the table.
func (d sqlDialect) createStatements() []string {
	defs := []string{fmt.Sprintf("%s %s NOT NULL PRIMARY KEY", sqlID, d.idType)}
	for _, c := range d.schema.Columns {
		def := fmt.Sprintf("%s %s", d.quote(c.columnName()), d.types[c.Type])
		if c.Required {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs,
		fmt.Sprintf("%s %s NOT NULL", sqlCreatedAt, d.timeType),
		fmt.Sprintf("%s %s NOT NULL", sqlUpdatedAt, d.timeType))

	var indexes []string
	for _, c := range d.schema.uniqueColumns() {
		if d.inlineUnique {
			defs = append(defs, fmt.Sprintf("UNIQUE KEY %s (%s)", d.quote(d.uniqueIndexName(c)), d.quote(c.columnName())))
			continue
		}
		indexes = append(indexes, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			d.quote(d.uniqueIndexName(c)), d.table(), d.quote(c.columnName())))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.table(), strings.Join(defs, ", "))}
	return append(stmts, indexes...)
}

// scanner is satisfied by pgx.Rows, pgx.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRow reads one row of selectList into a row.
func (d sqlDialect) scanRow(s scanner) (row, error) {
	n := len(d.schema.Columns) + 3
	raw := make([]any, n)
	ptrs := make([]any, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := s.Scan(ptrs...); err != nil {
		return row{}, err
	}

	r := row{values: make(map[string]any, len(d.schema.Columns))}
	switch id := raw[0].(type) {
	case string:
		r.id = id
	case []byte:
		r.id = string(id)
	default:
		r.id = fmt.Sprint(id)
	}
	for i, c := range d.schema.Columns {
		if raw[i+1] != nil {
			r.values[c.Field] = raw[i+1]
		}
	}
	r.createdAt = storageTime(raw[n-2])
	r.updatedAt = storageTime(raw[n-1])
	return r, nil
}
