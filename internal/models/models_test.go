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
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
)

func TestSchemasAreValid(t *testing.T) {
	require.NoError(t, UserSchema.Validate())
	require.NoError(t, AdminSchema.Validate())
}

func TestUserViewHidesPassword(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	user := UserFromRecord(repository.Record{
		ID:        "65f0c0ffee0000000000abcd",
		Fields:    repository.Fields{"name": "John", "email": "john@example.com", "password": "$2a$04$hash"},
		CreatedAt: at,
		UpdatedAt: at,
	})
	assert.Equal(t, "$2a$04$hash", user.PasswordHash)

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
	assert.Contains(t, string(data), `"email":"john@example.com"`)
}

func TestUsersFromRecordsNeverNil(t *testing.T) {
	assert.NotNil(t, UsersFromRecords(nil))
	assert.Len(t, UsersFromRecords([]repository.Record{{ID: "1"}, {ID: "2"}}), 2)
}

func TestAdminFromRecord(t *testing.T) {
	login := time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)
	admin := AdminFromRecord(repository.Record{
		ID: "7d8f6c5e-1111-4222-8333-944455556666",
		Fields: repository.Fields{
			"email":       "root@example.com",
			"role":        "super_admin",
			"isActive":    true,
			"lastLoginAt": login,
			"lastLoginIp": "10.0.0.1",
		},
	})
	assert.Equal(t, "super_admin", admin.Role)
	assert.True(t, admin.IsActive)
	require.NotNil(t, admin.LastLoginAt)
	assert.Equal(t, login, *admin.LastLoginAt)
	assert.Empty(t, admin.Avatar)
}
