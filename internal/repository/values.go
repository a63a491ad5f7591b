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
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// Timestamps are stored with millisecond precision in UTC, the finest
// resolution all three backends keep.
func canonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return canonicalTime(t), true
		}
	}
	return time.Time{}, false
}

// coerce converts caller input into the canonical Go type of the column.
func coerce(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeTime:
		switch x := v.(type) {
		case time.Time:
			return canonicalTime(x), nil
		case *time.Time:
			if x == nil {
				return nil, nil
			}
			return canonicalTime(*x), nil
		case string:
			if t, ok := parseTime(x); ok {
				return t, nil
			}
		}
	}
	return nil, &standarderrors.ValidationError{Field: c.Field, Reason: fmt.Sprintf("must be of type %s", c.Type)}
}

// fromStorage normalises a driver value into the canonical Go type. Drivers
// disagree on representation: mysql returns text as []byte and booleans as
// integers, mongo returns primitive.DateTime.
func fromStorage(t ColumnType, raw any) (any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case []byte:
		return fromStorage(t, string(v))
	case string:
		switch t {
		case TypeBool:
			b, err := strconv.ParseBool(v)
			return b, err == nil
		case TypeTime:
			return parseTime(v)
		}
		return v, true
	case bool:
		return v, true
	case int64:
		return v != 0, t == TypeBool
	case int32:
		return v != 0, t == TypeBool
	case int:
		return v != 0, t == TypeBool
	case time.Time:
		return canonicalTime(v), true
	case primitive.DateTime:
		return canonicalTime(v.Time()), true
	}
	return raw, true
}

func storageTime(raw any) time.Time {
	t, ok := fromStorage(TypeTime, raw)
	if !ok {
		return time.Time{}
	}
	tt, _ := t.(time.Time)
	return tt
}

func unknownField(field string) error {
	return &standarderrors.ValidationError{Field: field, Reason: "is not a known field"}
}

// prepareCreate validates input for a new record and fills defaults.
func prepareCreate(schema Schema, fields Fields) (Fields, error) {
	for name := range fields {
		if _, ok := schema.column(name); !ok {
			return nil, unknownField(name)
		}
	}

	out := make(Fields, len(schema.Columns))
	for _, c := range schema.Columns {
		v, err := coerce(c, fields[c.Field])
		if err != nil {
			return nil, err
		}
		if v == nil && c.Default != nil {
			if v, err = coerce(c, c.Default); err != nil {
				return nil, err
			}
		}
		if v == nil {
			if c.Required {
				return nil, &standarderrors.ValidationError{Field: c.Field, Reason: "is required"}
			}
			continue
		}
		if s, ok := v.(string); ok && c.Required && strings.TrimSpace(s) == "" {
			return nil, &standarderrors.ValidationError{Field: c.Field, Reason: "must not be empty"}
		}
		out[c.Field] = v
	}
	return out, nil
}

// prepareUpdate validates a partial update. Nil clears optional fields.
func prepareUpdate(schema Schema, fields Fields) (Fields, error) {
	out := make(Fields, len(fields))
	for name, raw := range fields {
		c, ok := schema.column(name)
		if !ok {
			return nil, unknownField(name)
		}
		v, err := coerce(c, raw)
		if err != nil {
			return nil, err
		}
		if v == nil && c.Required {
			return nil, &standarderrors.ValidationError{Field: c.Field, Reason: "is required"}
		}
		if s, ok := v.(string); ok && c.Required && strings.TrimSpace(s) == "" {
			return nil, &standarderrors.ValidationError{Field: c.Field, Reason: "must not be empty"}
		}
		out[name] = v
	}
	return out, nil
}

// toRecord normalises a stored row into a Record.
func toRecord(schema Schema, r row) Record {
	fields := make(Fields, len(r.values))
	for _, c := range schema.Columns {
		if v, ok := fromStorage(c.Type, r.values[c.Field]); ok && v != nil {
			fields[c.Field] = v
		}
	}
	return Record{
		ID:        r.id,
		Fields:    fields,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
}
