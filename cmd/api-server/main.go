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

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/bootstrap"
	"github.com/united-manufacturing-hub/service-scaffold/internal/cache"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/server"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/users"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
)

var buildtime string

func main() {
	logger.Initialize()
	defer func() { _ = logger.Sync() }()

	zap.S().Infof("This is api-server build date: %s", buildtime)

	e := config.FromOS()
	app, err := config.ResolveApp(e)
	if err != nil {
		zap.S().Fatal(err)
	}
	security, err := config.ResolveSecurity(e)
	if err != nil {
		zap.S().Fatal(err)
	}
	authCfg, err := config.ResolveAuth(e)
	if err != nil {
		zap.S().Fatal(err)
	}
	cacheCfg, err := config.ResolveCache(e)
	if err != nil {
		zap.S().Fatal(err)
	}
	proc := bootstrap.ReadProcess()

	ctx := context.Background()
	db, err := bootstrap.OpenDatabase(ctx, e)
	if err != nil {
		zap.S().Fatalw("Cannot connect to database", "error", err)
	}
	userRepo, err := db.Repository(ctx, models.UserSchema)
	if err != nil {
		zap.S().Fatalw("Cannot prepare user repository", "error", err)
	}

	responseCache, closeCache, err := cache.NewFromConfig(ctx, cacheCfg)
	if err != nil {
		zap.S().Fatalw("Cannot create cache", "error", err)
	}

	tokens, err := auth.NewTokens(authCfg)
	if err != nil {
		zap.S().Fatal(err)
	}
	userService := users.NewService(userRepo, responseCache)
	authService := auth.NewService(userService, tokens)

	prober := db.Prober(app.Env)
	bootstrap.ServeHealthcheck(proc.HealthPort, prober)
	bootstrap.ServeMetrics(proc.MetricsPort)

	srv, err := server.New(server.Options{App: app, Security: security, Prefix: app.APIPrefix, Prober: prober})
	if err != nil {
		zap.S().Fatal(err)
	}
	srv.MountUsers(userService, tokens)
	srv.MountAuth(authService)

	gs := internal.NewGracefulShutdown(proc.ShutdownTimeout, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), closeCache(), db.Close(ctx))
	})

	port := app.ListenPort(app.APIServerPort)
	zap.S().Infow("Starting api-server", "port", port, "env", app.Env, "database", db.Descriptor.Kind)
	if err = srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
		zap.S().Fatalw("HTTP server failed", "error", err)
	}
	gs.Wait()
}
