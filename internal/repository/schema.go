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

	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// ColumnType is the value type of a column.
type ColumnType string

const (
	TypeText ColumnType = "text"
	TypeBool ColumnType = "bool"
	TypeTime ColumnType = "time"
)

// Column describes one field of a record type.
type Column struct {
	// Field is the name used in Fields and in documents.
	Field string
	// Column is the relational column name. Defaults to Field.
	Column   string
	Type     ColumnType
	Required bool
	Unique   bool
	// Sensitive values are stored as bcrypt hashes.
	Sensitive bool
	Default   any
}

func (c Column) columnName() string {
	if c.Column != "" {
		return c.Column
	}
	return c.Field
}

// Schema describes a collection or table.
type Schema struct {
	Name    string
	Columns []Column
}

var reservedFields = map[string]bool{"id": true, "_id": true, "createdAt": true, "updatedAt": true}

// Validate checks the schema itself.
func (s Schema) Validate() error {
	if s.Name == "" {
		return &standarderrors.ConfigError{Key: "schema", Reason: "name is empty"}
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		switch {
		case c.Field == "":
			return &standarderrors.ConfigError{Key: s.Name, Reason: "column without field name"}
		case reservedFields[c.Field]:
			return &standarderrors.ConfigError{Key: s.Name, Reason: fmt.Sprintf("field %q is reserved", c.Field)}
		case seen[c.Field]:
			return &standarderrors.ConfigError{Key: s.Name, Reason: fmt.Sprintf("field %q declared twice", c.Field)}
		}
		switch c.Type {
		case TypeText, TypeBool, TypeTime:
		default:
			return &standarderrors.ConfigError{Key: s.Name, Reason: fmt.Sprintf("field %q has unknown type %q", c.Field, c.Type)}
		}
		if c.Sensitive && c.Type != TypeText {
			return &standarderrors.ConfigError{Key: s.Name, Reason: fmt.Sprintf("sensitive field %q must be text", c.Field)}
		}
		seen[c.Field] = true
	}
	return nil
}

func (s Schema) column(field string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

func (s Schema) uniqueColumns() []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Unique {
			out = append(out, c)
		}
	}
	return out
}
