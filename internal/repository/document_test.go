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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository/repositorytest"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

func accountSchema() Schema {
	return Schema{
		Name: "accounts",
		Columns: []Column{
			{Field: "name", Type: TypeText, Required: true},
			{Field: "email", Type: TypeText, Required: true, Unique: true},
			{Field: "password", Type: TypeText, Sensitive: true},
			{Field: "active", Column: "is_active", Type: TypeBool, Default: true},
			{Field: "lastLoginAt", Column: "last_login_at", Type: TypeTime},
		},
	}
}

func testOptions() Options {
	return Options{QueryTimeout: time.Second, BcryptCost: bcrypt.MinCost}
}

func newDocumentRepo(t *testing.T) (Repository, *repositorytest.MemoryCollection) {
	t.Helper()
	coll := repositorytest.NewMemoryCollection()
	repo, err := NewDocument(coll, accountSchema(), testOptions())
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo, coll
}

func TestDocumentCreateThenFind(t *testing.T) {
	repo, _ := newDocumentRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, Fields{"name": "John", "email": "john@example.com", "password": "hunter22"})
	require.NoError(t, err)
	assert.Len(t, created.ID, 24)
	assert.Equal(t, true, created.Fields["active"])
	assert.NotContains(t, created.Fields, "lastLoginAt")
	assert.NotEqual(t, "hunter22", created.String("password"))
	assert.True(t, VerifySecret(created, "password", "hunter22"))
	assert.False(t, VerifySecret(created, "password", "wrong"))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created, *found)

	byEmail, err := repo.FindByField(ctx, "email", "john@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByField(ctx, "id", created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, created.ID, byID.ID)
}

func TestDocumentDuplicateLeavesStoreUnchanged(t *testing.T) {
	repo, coll := newDocumentRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, Fields{"name": "John", "email": "john@example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, Fields{"name": "Johnny", "email": "john@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, standarderrors.ErrDuplicate)

	var dup *standarderrors.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)
	assert.Equal(t, 1, coll.Len())
}

func TestDocumentAbsentLookups(t *testing.T) {
	repo, _ := newDocumentRepo(t)
	ctx := context.Background()

	for _, id := range []string{"", "not-an-id", "507f1f77bcf86cd799439011"} {
		rec, err := repo.FindByID(ctx, id)
		assert.NoError(t, err, id)
		assert.Nil(t, rec, id)
	}

	rec, err := repo.FindByField(ctx, "email", "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, rec)

	_, err = repo.FindByField(ctx, "shoeSize", 42)
	assert.ErrorIs(t, err, standarderrors.ErrValidation)
}

func TestDocumentFindAll(t *testing.T) {
	repo, _ := newDocumentRepo(t)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo, err = NewDocument(repositorytest.NewMemoryCollection(), accountSchema(), Options{
		BcryptCost: bcrypt.MinCost,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := repo.Create(ctx, Fields{"name": email, "email": email})
		require.NoError(t, err)
	}
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a@example.com", all[0].String("email"))
	assert.Equal(t, "c@example.com", all[2].String("email"))
}

func TestDocumentUpdate(t *testing.T) {
	repo, _ := newDocumentRepo(t)
	ctx := context.Background()

	john, err := repo.Create(ctx, Fields{"name": "John", "email": "john@example.com", "password": "first"})
	require.NoError(t, err)
	jane, err := repo.Create(ctx, Fields{"name": "Jane", "email": "jane@example.com"})
	require.NoError(t, err)

	login := time.Date(2024, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	updated, err := repo.Update(ctx, john.ID, Fields{"name": "Johnny", "password": "second", "lastLoginAt": login})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.String("name"))
	assert.Equal(t, "john@example.com", updated.String("email"))
	assert.True(t, VerifySecret(updated, "password", "second"))
	assert.Equal(t, login, *updated.Time("lastLoginAt"))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	stored, err := repo.FindByID(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, *stored)

	_, err = repo.Update(ctx, john.ID, Fields{"email": "jane@example.com"})
	assert.ErrorIs(t, err, standarderrors.ErrDuplicate)

	_, err = repo.Update(ctx, jane.ID, Fields{"email": "jane@example.com"})
	assert.NoError(t, err)

	_, err = repo.Update(ctx, john.ID, Fields{"name": nil})
	assert.ErrorIs(t, err, standarderrors.ErrValidation)

	cleared, err := repo.Update(ctx, john.ID, Fields{"lastLoginAt": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Time("lastLoginAt"))
}

func TestDocumentUpdateAbsent(t *testing.T) {
	repo, coll := newDocumentRepo(t)

	_, err := repo.Update(context.Background(), "507f1f77bcf86cd799439011", Fields{"name": "x"})
	assert.ErrorIs(t, err, standarderrors.ErrNotFound)

	_, err = repo.Update(context.Background(), "garbage", Fields{"name": "x"})
	assert.ErrorIs(t, err, standarderrors.ErrNotFound)
	assert.Equal(t, 0, coll.Len())
}

func TestDocumentDeleteTwice(t *testing.T) {
	repo, _ := newDocumentRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, Fields{"name": "John", "email": "john@example.com"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), standarderrors.ErrNotFound)

	found, err := repo.FindByID(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestDocumentValidation(t *testing.T) {
	repo, coll := newDocumentRepo(t)
	ctx := context.Background()

	tcs := []struct {
		name   string
		fields Fields
		field  string
	}{
		{"missing required", Fields{"email": "a@b.c"}, "name"},
		{"blank required", Fields{"name": "  ", "email": "a@b.c"}, "name"},
		{"wrong type", Fields{"name": "A", "email": 42}, "email"},
		{"unknown field", Fields{"name": "A", "email": "a@b.c", "role": "x"}, "role"},
		{"bad time", Fields{"name": "A", "email": "a@b.c", "lastLoginAt": "yesterday"}, "lastLoginAt"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tc.fields)
			require.ErrorIs(t, err, standarderrors.ErrValidation)

			var verr *standarderrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Equal(t, 0, coll.Len())
}

func TestDocumentConcurrentCreatesOfSameValue(t *testing.T) {
	repo, coll := newDocumentRepo(t)

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(context.Background(), Fields{"name": "Race", "email": "race@example.com"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, standarderrors.ErrDuplicate):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), dup.Load())
	assert.Equal(t, 1, coll.Len())
}

// blindCollection hides existing documents from field lookups so that only
// the unique index can catch a collision.
type blindCollection struct {
	*repositorytest.MemoryCollection
}

func (b blindCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	if _, byID := filter["_id"]; byID {
		return b.MemoryCollection.FindOne(ctx, filter)
	}
	return nil, nil
}

func TestDocumentBackendDuplicateIsMapped(t *testing.T) {
	coll := blindCollection{repositorytest.NewMemoryCollection()}
	repo, err := NewDocument(coll, accountSchema(), testOptions())
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.Equal(t, []string{"email"}, coll.Indexes())

	_, err = repo.Create(context.Background(), Fields{"name": "A", "email": "a@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), Fields{"name": "B", "email": "a@example.com"})
	assert.ErrorIs(t, err, standarderrors.ErrDuplicate)
}

func TestDocumentConnectionFailure(t *testing.T) {
	repo, coll := newDocumentRepo(t)
	coll.FailWith(errors.New("server selection timeout"))

	_, err := repo.FindAll(context.Background())
	assert.ErrorIs(t, err, standarderrors.ErrConnection)

	_, err = repo.Create(context.Background(), Fields{"name": "A", "email": "a@example.com"})
	assert.ErrorIs(t, err, standarderrors.ErrConnection)

	assert.Equal(t, config.Document, repo.Kind())
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, accountSchema().Validate())
	assert.ErrorIs(t, Schema{}.Validate(), standarderrors.ErrConfig)
	assert.ErrorIs(t, Schema{Name: "x", Columns: []Column{{Field: "id", Type: TypeText}}}.Validate(), standarderrors.ErrConfig)
	assert.ErrorIs(t, Schema{Name: "x", Columns: []Column{{Field: "a", Type: "blob"}}}.Validate(), standarderrors.ErrConfig)
	assert.ErrorIs(t, Schema{Name: "x", Columns: []Column{{Field: "a", Type: TypeBool, Sensitive: true}}}.Validate(), standarderrors.ErrConfig)
}

func TestQueryTimeoutIsApplied(t *testing.T) {
	r := &repo{opts: Options{QueryTimeout: 50 * time.Millisecond}}

	ctx, cancel := r.bound(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)

	parent, cancelParent := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelParent()
	ctx, cancel = r.bound(parent)
	defer cancel()
	assert.Equal(t, parent, ctx)
}
