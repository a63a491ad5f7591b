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

package admins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository/repositorytest"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
)

func newTestService(t *testing.T) (*Service, *repositorytest.MemoryCollection) {
	t.Helper()
	coll := repositorytest.NewMemoryCollection()
	repo, err := repository.NewDocument(coll, models.AdminSchema,
		repository.Options{QueryTimeout: time.Second, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return NewService(repo), coll
}

func TestSeedDefaultIsIdempotent(t *testing.T) {
	svc, coll := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedDefault(ctx, "Root@Example.com", "changeme")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedDefault(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, coll.Len())

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, SeedRole, all[0].Role)
	assert.True(t, all[0].IsActive)
	assert.Nil(t, all[0].LastLoginAt)
}

func TestSeedDefaultSkipsWithoutCredentials(t *testing.T) {
	svc, coll := newTestService(t)
	created, err := svc.SeedDefault(context.Background(), "root@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, coll.Len())
}

func TestLoginRecordsLastLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	at := time.Date(2025, 4, 1, 9, 15, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	_, err := svc.SeedDefault(ctx, "root@example.com", "changeme")
	require.NoError(t, err)

	admin, err := svc.Login(ctx, LoginInput{Email: "root@example.com", Password: "changeme"}, "10.0.0.7")
	require.NoError(t, err)
	require.NotNil(t, admin.LastLoginAt)
	assert.True(t, at.Equal(*admin.LastLoginAt))
	assert.Equal(t, "10.0.0.7", admin.LastLoginIP)

	stored, err := svc.FindOne(ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "10.0.0.7", stored.LastLoginIP)
}

func TestLoginRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SeedDefault(ctx, "root@example.com", "changeme")
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "root@example.com", Password: "nope"}, "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "changeme"}, "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, all[0].ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "root@example.com", Password: "changeme"}, "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "inactive admins cannot log in")
}
