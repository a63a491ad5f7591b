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

package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

func TestOpenDatabaseRejectsUnknownKind(t *testing.T) {
	_, err := OpenDatabase(context.Background(), config.Environment{"DB_TYPE": "oracle"})
	assert.ErrorIs(t, err, standarderrors.ErrConfig)
}

func TestRepositorySynchronizesSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	db := &Database{
		Session:    database.NewPostgresSession(mock),
		Descriptor: config.ConnectionDescriptor{Kind: config.RelationalA},
		Options:    config.DatabaseOptions{QueryTimeout: time.Second, Synchronize: true},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "users"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS "users_email_key"`).WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	repo, err := db.Repository(context.Background(), models.UserSchema)
	require.NoError(t, err)
	assert.Equal(t, config.RelationalA, repo.Kind())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryWithoutSynchronize(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	db := &Database{
		Session: database.NewPostgresSession(mock),
		Options: config.DatabaseOptions{QueryTimeout: time.Second},
	}
	_, err = db.Repository(context.Background(), models.AdminSchema)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadProcess(t *testing.T) {
	t.Setenv("HEALTH_PORT", "9000")
	t.Setenv("SHUTDOWN_TIMEOUT", "12")

	p := ReadProcess()
	assert.Equal(t, 2112, p.MetricsPort)
	assert.Equal(t, 9000, p.HealthPort)
	assert.Equal(t, 12*time.Second, p.ShutdownTimeout)
}
