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

package models

import (
	"time"

	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
)

// DefaultAdminRole is assigned when none is given.
const DefaultAdminRole = "admin"

// AdminSchema is stored in the "admins" collection or table.
var AdminSchema = repository.Schema{
	Name: "admins",
	Columns: []repository.Column{
		{Field: FieldEmail, Type: repository.TypeText, Required: true, Unique: true},
		{Field: FieldPassword, Type: repository.TypeText, Required: true, Sensitive: true},
		{Field: FieldRole, Type: repository.TypeText, Required: true, Default: DefaultAdminRole},
		{Field: FieldIsActive, Column: "is_active", Type: repository.TypeBool, Default: true},
		{Field: FieldLastLoginAt, Column: "last_login_at", Type: repository.TypeTime},
		{Field: FieldLastLoginIP, Column: "last_login_ip", Type: repository.TypeText},
		{Field: FieldName, Type: repository.TypeText},
		{Field: FieldAvatar, Type: repository.TypeText},
	},
}

type Admin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP  string     `json:"lastLoginIp,omitempty"`
	Name         string     `json:"name,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// AdminFromRecord converts a stored record.
func AdminFromRecord(rec repository.Record) Admin {
	return Admin{
		ID:           rec.ID,
		Email:        rec.String(FieldEmail),
		PasswordHash: rec.String(FieldPassword),
		Role:         rec.String(FieldRole),
		IsActive:     rec.Bool(FieldIsActive),
		LastLoginAt:  rec.Time(FieldLastLoginAt),
		LastLoginIP:  rec.String(FieldLastLoginIP),
		Name:         rec.String(FieldName),
		Avatar:       rec.String(FieldAvatar),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
