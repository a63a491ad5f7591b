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

package database

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

// Session is the live handle to a backend. The concrete types form a closed
// set: *MongoSession, *PostgresSession and *MySQLSession.
//
// Sessions are closed only by the Provider that opened them.
type Session interface {
	Kind() config.BackendKind
	close(ctx context.Context) error
}

// Pinger is implemented by sessions that support a native ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatementRunner is implemented by sessions that execute SQL text.
type StatementRunner interface {
	RunStatement(ctx context.Context, statement string) error
}

// MongoSession wraps a connected client and its default database.
type MongoSession struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoSession wraps an existing client.
func NewMongoSession(client *mongo.Client, database string) *MongoSession {
	return &MongoSession{client: client, database: client.Database(database)}
}

func (s *MongoSession) Kind() config.BackendKind { return config.Document }

func (s *MongoSession) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Database returns the configured database.
func (s *MongoSession) Database() *mongo.Database { return s.database }

// Collection returns a collection of the configured database.
func (s *MongoSession) Collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

func (s *MongoSession) close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// PgxPool is the subset of *pgxpool.Pool used by the service. It is also
// satisfied by pgxmock pools.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresSession wraps a pgx connection pool.
type PostgresSession struct {
	pool PgxPool
}

// NewPostgresSession wraps an existing pool.
func NewPostgresSession(pool PgxPool) *PostgresSession {
	return &PostgresSession{pool: pool}
}

func (s *PostgresSession) Kind() config.BackendKind { return config.RelationalA }

// Pool returns the underlying pool.
func (s *PostgresSession) Pool() PgxPool { return s.pool }

func (s *PostgresSession) RunStatement(ctx context.Context, statement string) error {
	_, err := s.pool.Exec(ctx, statement)
	return err
}

func (s *PostgresSession) close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// MySQLSession wraps a database/sql handle using the mysql driver.
type MySQLSession struct {
	db *sql.DB
}

// NewMySQLSession wraps an existing handle.
func NewMySQLSession(db *sql.DB) *MySQLSession {
	return &MySQLSession{db: db}
}

func (s *MySQLSession) Kind() config.BackendKind { return config.RelationalB }

// DB returns the underlying handle.
func (s *MySQLSession) DB() *sql.DB { return s.db }

func (s *MySQLSession) RunStatement(ctx context.Context, statement string) error {
	_, err := s.db.ExecContext(ctx, statement)
	return err
}

func (s *MySQLSession) close(_ context.Context) error {
	return s.db.Close()
}
