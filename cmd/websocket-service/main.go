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
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/bootstrap"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/server"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/events"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
)

var buildtime string

func main() {
	logger.Initialize()
	defer func() { _ = logger.Sync() }()

	zap.S().Infof("This is websocket-service build date: %s", buildtime)

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
	proc := bootstrap.ReadProcess()

	// Broadcasting over HTTP is only offered when tokens can be checked.
	var tokens *auth.Tokens
	if authCfg.JWTSecret != "" {
		if tokens, err = auth.NewTokens(authCfg); err != nil {
			zap.S().Fatal(err)
		}
	}

	bootstrap.ServeHealthcheck(proc.HealthPort, nil)
	bootstrap.ServeMetrics(proc.MetricsPort)

	hub := events.NewHub()
	srv, err := server.New(server.Options{App: app, Security: security, Prefix: app.APIPrefix})
	if err != nil {
		zap.S().Fatal(err)
	}
	srv.MountEvents(hub, tokens)

	gs := internal.NewGracefulShutdown(proc.ShutdownTimeout, func(ctx context.Context) error {
		hub.Close()
		return srv.Shutdown(ctx)
	})

	port := app.ListenPort(app.WebsocketPort)
	zap.S().Infow("Starting websocket-service", "port", port, "env", app.Env)
	if err = srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
		zap.S().Fatalw("HTTP server failed", "error", err)
	}
	gs.Wait()
}
