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

// Package server is the HTTP surface shared by the services: a gin engine
// with access logging, panic recovery, security headers, compression, rate
// limiting and the health and metrics routes. Each service mounts its own
// route groups on top.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/health"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// Options configure New.
type Options struct {
	App      config.AppConfig
	Security config.SecurityConfig
	// Prefix is the path of the API group, e.g. "api" or "admin".
	Prefix string
	// Prober may be nil for services without a database.
	Prober *health.Prober
}

// Server owns the engine and its http.Server.
type Server struct {
	Engine *gin.Engine

	api    *gin.RouterGroup
	strict *RateLimiter
	prober *health.Prober
	start  time.Time
	http   *http.Server
}

func New(opts Options) (*Server, error) {
	normal, err := NewRateLimiter(opts.Security.RateLimitWindow, opts.Security.RateLimitMax, opts.Security.TrustedIPs)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	strict, err := NewRateLimiter(opts.Security.StrictRateLimitWindow, opts.Security.StrictRateLimitMax, opts.Security.TrustedIPs)
	if err != nil {
		return nil, fmt.Errorf("create strict rate limiter: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))
	router.Use(SecurityHeaders())
	if opts.App.CompressionEnabled {
		router.Use(gzip.Gzip(opts.App.CompressionLevel, gzip.WithExcludedPaths([]string{"/metrics", "/ws"})))
	}
	router.NoRoute(func(c *gin.Context) {
		respondError(c, &standarderrors.NotFoundError{Collection: "route", ID: c.Request.URL.Path})
	})

	s := &Server{
		Engine: router,
		strict: strict,
		prober: opts.Prober,
		start:  time.Now(),
	}
	router.GET("/health", s.handleHealth)
	router.GET("/health/liveness", s.handleLiveness)
	router.GET("/health/readiness", s.handleReadiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.api = router.Group("/"+opts.Prefix, normal.Middleware())
	return s, nil
}

// API is the rate limited route group under the configured prefix.
func (s *Server) API() *gin.RouterGroup {
	return s.api
}

// Strict is the limiter for credential endpoints.
func (s *Server) Strict() gin.HandlerFunc {
	return s.strict.Middleware()
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	zap.S().Infow("HTTP server listening", "addr", addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.prober == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.start).Seconds(),
			"timestamp": time.Now().UTC(),
		})
		return
	}
	report := s.prober.Report(c.Request.Context())
	c.JSON(report.HTTPStatus(), report)
}

func (s *Server) handleLiveness(c *gin.Context) {
	uptime := time.Since(s.start).Seconds()
	if s.prober != nil {
		uptime = s.prober.Liveness().Uptime
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    uptime,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	body := gin.H{"status": "ready", "timestamp": time.Now().UTC()}
	if s.prober == nil {
		c.JSON(http.StatusOK, body)
		return
	}
	readiness := s.prober.Readiness(c.Request.Context())
	body["database"] = readiness.Result
	if !readiness.Ready {
		body["status"] = "not ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
