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

package config

import (
	"strings"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
)

// BackendKind names the storage backend selected at process start.
type BackendKind string

const (
	// Document is the MongoDB backend.
	Document BackendKind = "mongodb"
	// RelationalA is the PostgreSQL backend.
	RelationalA BackendKind = "postgresql"
	// RelationalB is the MySQL / MariaDB backend.
	RelationalB BackendKind = "mysql"
)

var kindAliases = map[string]BackendKind{
	"mongodb":    Document,
	"mongo":      Document,
	"postgresql": RelationalA,
	"postgres":   RelationalA,
	"mysql":      RelationalB,
	"mariadb":    RelationalB,
}

// Kinds lists every supported backend.
func Kinds() []BackendKind {
	return []BackendKind{Document, RelationalA, RelationalB}
}

// ParseBackendKind maps a DB_TYPE value, case-insensitively and with aliases,
// onto a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", invalid("DB_TYPE", "unsupported database type %q", s)
	}
	return kind, nil
}

func (k BackendKind) String() string { return string(k) }

// IsRelational reports whether the backend speaks SQL.
func (k BackendKind) IsRelational() bool {
	return k == RelationalA || k == RelationalB
}

// DefaultPort returns the conventional port of the backend.
func (k BackendKind) DefaultPort() int {
	switch k {
	case RelationalA:
		return internal.DefaultPostgresPort
	case RelationalB:
		return internal.DefaultMySQLPort
	default:
		return internal.DefaultMongoPort
	}
}

func (k BackendKind) scheme() string {
	switch k {
	case RelationalA:
		return "postgresql"
	case RelationalB:
		return "mysql"
	default:
		return "mongodb"
	}
}

func (k BackendKind) defaultUser() string {
	switch k {
	case RelationalA:
		return "postgres"
	case RelationalB:
		return "root"
	default:
		return ""
	}
}
