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

// Package models declares the record types the services persist and their
// typed views.
package models

import (
	"time"

	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
)

const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldRole        = "role"
	FieldIsActive    = "isActive"
	FieldLastLoginAt = "lastLoginAt"
	FieldLastLoginIP = "lastLoginIp"
	FieldAvatar      = "avatar"
)

// UserSchema is stored in the "users" collection or table.
var UserSchema = repository.Schema{
	Name: "users",
	Columns: []repository.Column{
		{Field: FieldName, Type: repository.TypeText, Required: true},
		{Field: FieldEmail, Type: repository.TypeText, Required: true, Unique: true},
		{Field: FieldPassword, Type: repository.TypeText, Sensitive: true},
	},
}

// User is the public view of a user record. PasswordHash never leaves the
// process.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserFromRecord converts a stored record.
func UserFromRecord(rec repository.Record) User {
	return User{
		ID:           rec.ID,
		Name:         rec.String(FieldName),
		Email:        rec.String(FieldEmail),
		PasswordHash: rec.String(FieldPassword),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// UsersFromRecords converts a list and never returns nil.
func UsersFromRecords(recs []repository.Record) []User {
	out := make([]User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, UserFromRecord(rec))
	}
	return out
}
