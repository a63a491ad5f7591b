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

// Package bootstrap holds the startup steps the service binaries share:
// connecting to the configured backend, building repositories, and serving
// the healthcheck and metrics listeners.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
	"github.com/united-manufacturing-hub/service-scaffold/internal/health"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
)

// Process holds the per-process knobs.
type Process struct {
	MetricsPort     int
	HealthPort      int
	ShutdownTimeout time.Duration
}

// ReadProcess reads METRICS_PORT, HEALTH_PORT and SHUTDOWN_TIMEOUT
// (seconds). Unparsable values fall back to the defaults.
func ReadProcess() Process {
	metricsPort, err := env.GetAsInt("METRICS_PORT", false, 2112)
	if err != nil {
		zap.S().Error(err)
	}
	healthPort, err := env.GetAsInt("HEALTH_PORT", false, 8086)
	if err != nil {
		zap.S().Error(err)
	}
	shutdownSeconds, err := env.GetAsInt("SHUTDOWN_TIMEOUT", false, int(internal.DefaultShutdownTimeout.Seconds()))
	if err != nil {
		zap.S().Error(err)
	}
	return Process{
		MetricsPort:     metricsPort,
		HealthPort:      healthPort,
		ShutdownTimeout: time.Duration(shutdownSeconds) * time.Second,
	}
}

// Database is the connected backend plus the options it was opened with.
type Database struct {
	Provider   *database.Provider
	Session    database.Session
	Descriptor config.ConnectionDescriptor
	Options    config.DatabaseOptions
}

// OpenDatabase resolves the database configuration from e and connects.
// Any error is fatal for the caller.
func OpenDatabase(ctx context.Context, e config.Environment) (*Database, error) {
	desc, err := config.Resolve(e)
	if err != nil {
		return nil, err
	}
	opts, err := config.ResolveDatabaseOptions(e)
	if err != nil {
		return nil, err
	}

	provider := database.NewProvider(database.OptionsFrom(opts))
	zap.S().Infow("Connecting to database", "kind", desc.Kind, "uri", desc.Redacted())
	session, err := provider.Open(ctx, desc)
	if err != nil {
		return nil, err
	}
	return &Database{Provider: provider, Session: session, Descriptor: desc, Options: opts}, nil
}

// Repository builds the repository for schema and, when DB_SYNCHRONIZE is
// on, creates its collection or table.
func (d *Database) Repository(ctx context.Context, schema repository.Schema) (repository.Repository, error) {
	repo, err := repository.New(d.Session, schema, repository.Options{QueryTimeout: d.Options.QueryTimeout})
	if err != nil {
		return nil, err
	}
	if d.Options.Synchronize {
		if err = repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema %s: %w", schema.Name, err)
		}
		zap.S().Debugw("Schema ensured", "name", schema.Name, "kind", d.Descriptor.Kind)
	}
	return repo, nil
}

// Prober returns a health prober over the provider.
func (d *Database) Prober(environment string) *health.Prober {
	return health.NewProber(d.Provider, d.Descriptor.Kind, health.Options{Environment: environment})
}

// Close releases the session.
func (d *Database) Close(ctx context.Context) error {
	return d.Provider.Close(ctx)
}

// ServeHealthcheck serves the liveness and readiness endpoints on port.
// prober may be nil.
func ServeHealthcheck(port int, prober *health.Prober) {
	var handler healthcheck.Handler
	if prober != nil {
		handler = prober.Handler()
	} else {
		handler = healthcheck.NewHandler()
		handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	}
	serve("healthcheck", port, handler)
}

// ServeMetrics serves the prometheus registry on port.
func ServeMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve("metrics", port, mux)
}

func serve(name string, port int, handler http.Handler) {
	if port <= 0 {
		return
	}
	go func() {
		srv := &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorf("Error starting %s: %s", name, err)
		}
	}()
}
