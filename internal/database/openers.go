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
	"fmt"
	"net"
	"net/url"
	"runtime"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

// Opener establishes one session for a descriptor. On failure it must
// release whatever it created.
type Opener func(ctx context.Context, desc config.ConnectionDescriptor, opts Options) (Session, error)

// DefaultOpeners returns the opener registry for every supported backend.
func DefaultOpeners() map[config.BackendKind]Opener {
	return map[config.BackendKind]Opener{
		config.Document:    openMongo,
		config.RelationalA: openPostgres,
		config.RelationalB: openMySQL,
	}
}

func openMongo(ctx context.Context, desc config.ConnectionDescriptor, opts Options) (Session, error) {
	clientOpts := options.Client().
		ApplyURI(desc.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	if opts.MaxConns > 0 {
		clientOpts.SetMaxPoolSize(uint64(opts.MaxConns))
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	session := NewMongoSession(client, desc.Database)
	if err = session.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return session, nil
}

func openPostgres(ctx context.Context, desc config.ConnectionDescriptor, opts Options) (Session, error) {
	parseConfig, err := pgxpool.ParseConfig(desc.URI)
	if err != nil {
		return nil, err
	}

	parseConfig.MinConns = int32(runtime.NumCPU())
	if parseConfig.MinConns < 4 {
		parseConfig.MinConns = 4
	}
	if opts.MaxConns > 0 {
		parseConfig.MaxConns = int32(opts.MaxConns)
	}
	if parseConfig.MinConns > parseConfig.MaxConns {
		parseConfig.MinConns = parseConfig.MaxConns
	}
	parseConfig.MaxConnIdleTime = 5 * time.Minute
	parseConfig.MaxConnLifetime = 10 * time.Minute
	parseConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout

	parseConfig.BeforeClose = func(conn *pgx.Conn) {
		zap.S().Debugf("BeforeClose: conn: %v", conn.Config().Host)
	}

	pool, err := pgxpool.NewWithConfig(ctx, parseConfig)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresSession(pool), nil
}

func openMySQL(ctx context.Context, desc config.ConnectionDescriptor, opts Options) (Session, error) {
	dsn, err := MySQLDSN(desc, opts.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewMySQLSession(db), nil
}

// MySQLDSN converts the descriptor into a go-sql-driver DSN. Query parameters
// of a mysql:// URI are carried over as driver params.
func MySQLDSN(desc config.ConnectionDescriptor, timeout time.Duration) (string, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.User = desc.Username
	cfg.Passwd = desc.Password
	cfg.Addr = net.JoinHostPort(desc.Host, strconv.Itoa(desc.Port))
	cfg.DBName = desc.Database
	cfg.ParseTime = true
	cfg.Timeout = timeout

	if desc.URI != "" {
		u, err := url.Parse(desc.URI)
		if err != nil {
			return "", fmt.Errorf("parse mysql uri: %w", err)
		}
		if u.Scheme != "mysql" && u.Scheme != "mariadb" {
			return "", fmt.Errorf("unexpected scheme %q for mysql", u.Scheme)
		}
		for key, values := range u.Query() {
			if len(values) == 0 {
				continue
			}
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[key] = values[0]
		}
	}
	return cfg.FormatDSN(), nil
}
