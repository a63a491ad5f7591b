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

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
	"github.com/united-manufacturing-hub/service-scaffold/internal/health"
	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository/repositorytest"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/admins"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/events"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/users"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

type pingSession struct {
	database.Session
	err error
}

func (p *pingSession) Kind() config.BackendKind { return config.Document }

func (p *pingSession) Ping(context.Context) error { return p.err }

type sessionSource struct{ session database.Session }

func (s sessionSource) Session() (database.Session, error) { return s.session, nil }

func testSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		RateLimitWindow:       time.Minute,
		RateLimitMax:          1000,
		StrictRateLimitWindow: time.Minute,
		StrictRateLimitMax:    1000,
	}
}

func testRepo(t *testing.T, schema repository.Schema) repository.Repository {
	t.Helper()
	repo, err := repository.NewDocument(repositorytest.NewMemoryCollection(), schema,
		repository.Options{QueryTimeout: time.Second, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func testTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(config.AuthConfig{JWTSecret: "secret", JWTExpiresIn: time.Hour})
	require.NoError(t, err)
	return tokens
}

func newTestServer(t *testing.T, prefix string, prober *health.Prober) *Server {
	t.Helper()
	s, err := New(Options{
		App:      config.AppConfig{CompressionEnabled: true, CompressionLevel: -1},
		Security: testSecurity(),
		Prefix:   prefix,
		Prober:   prober,
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tcs := []struct {
		err    error
		status int
	}{
		{&standarderrors.ValidationError{Field: "email", Reason: "is required"}, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized},
		{&standarderrors.NotFoundError{Collection: "users", ID: "1"}, http.StatusNotFound},
		{&standarderrors.DuplicateError{Collection: "users", Field: "email"}, http.StatusConflict},
		{&standarderrors.ConnectionError{Backend: "mongodb", Op: "find", Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
	}
}

func TestHealthRoutes(t *testing.T) {
	healthy := health.NewProber(sessionSource{&pingSession{}}, config.Document, health.Options{Environment: "test"})
	s := newTestServer(t, "api", healthy)

	rec := do(t, s.Engine, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var report health.Report
	decode(t, rec, &report)
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "connected", report.Database.Status)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, s.Engine, http.MethodGet, "/health/readiness", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := health.NewProber(sessionSource{&pingSession{err: errors.New("no reachable servers")}}, config.Document, health.Options{})
	s = newTestServer(t, "api", degraded)

	rec = do(t, s.Engine, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decode(t, rec, &report)
	assert.Equal(t, "disconnected", report.Database.Status)
	assert.NotEmpty(t, report.Database.Error)

	rec = do(t, s.Engine, http.MethodGet, "/health/readiness", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s.Engine, http.MethodGet, "/health/liveness", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	s := newTestServer(t, "", nil)
	for _, path := range []string{"/health", "/health/liveness", "/health/readiness"} {
		assert.Equal(t, http.StatusOK, do(t, s.Engine, http.MethodGet, path, "", nil).Code, path)
	}
}

func TestMetricsAndNoRoute(t *testing.T) {
	s := newTestServer(t, "api", nil)
	rec := do(t, s.Engine, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = do(t, s.Engine, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(time.Hour, 2, []string{"10.0.0.9"})
	require.NoError(t, err)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "limits are per client")

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("10.0.0.9"), "trusted clients are never limited")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	sec := testSecurity()
	sec.RateLimitMax = 1
	s, err := New(Options{Security: sec, Prefix: "api"})
	require.NoError(t, err)
	s.API().GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(t, s.Engine, http.MethodGet, "/api/ping", "", nil).Code)
	rec := do(t, s.Engine, http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, s.Engine, http.MethodGet, "/health/liveness", "", nil).Code,
		"health routes are not limited")
}

func TestUserAndAuthRoutes(t *testing.T) {
	tokens := testTokens(t)
	userSvc := users.NewService(testRepo(t, models.UserSchema), nil)
	s := newTestServer(t, "api", nil)
	s.MountUsers(userSvc, tokens)
	s.MountAuth(auth.NewService(userSvc, tokens))
	h := s.Engine

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "John", "email": "not-an-email", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "John", "email": "john@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered auth.Response
	decode(t, rec, &registered)
	require.NotEmpty(t, registered.AccessToken)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "John", "email": "john@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "john@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/users", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/users", "garbage", nil).Code)

	token := registered.AccessToken
	rec = do(t, h, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.User
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, h, http.MethodPatch, "/api/users/"+list[0].ID, token, map[string]string{"name": "Johnny"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile auth.UserSummary
	decode(t, rec, &profile)
	assert.Equal(t, "Johnny", profile.Name)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/users/"+list[0].ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/users/"+list[0].ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/users/"+list[0].ID, token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/auth/profile", token, nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	tokens := testTokens(t)
	adminSvc := admins.NewService(testRepo(t, models.AdminSchema))
	_, err := adminSvc.SeedDefault(context.Background(), "root@example.com", "changeme")
	require.NoError(t, err)

	s := newTestServer(t, "admin", nil)
	s.MountAdmins(adminSvc, tokens)
	h := s.Engine

	rec := do(t, h, http.MethodPost, "/admin/auth/login", "", map[string]string{"email": "root@example.com", "password": "changeme"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string       `json:"access_token"`
		Admin       models.Admin `json:"admin"`
	}
	decode(t, rec, &login)
	require.NotNil(t, login.Admin.LastLoginAt)
	assert.NotEmpty(t, login.Admin.LastLoginIP)

	rec = do(t, h, http.MethodGet, "/admin/admins", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Admin
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	userPair, err := tokens.Issue("42", "john@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/admin/admins", userPair.AccessToken, nil).Code)
}

func TestEventRoutes(t *testing.T) {
	tokens := testTokens(t)
	hub := events.NewHub()
	defer hub.Close()

	s := newTestServer(t, "api", nil)
	s.MountEvents(hub, tokens)
	srv := httptest.NewServer(s.Engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	pair, err := tokens.Issue("42", "john@example.com", "")
	require.NoError(t, err)
	rec := do(t, s.Engine, http.MethodPost, "/api/events", pair.AccessToken, map[string]any{"event": "deploy", "data": "v2"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, "deploy", env.Event)
	assert.JSONEq(t, `"v2"`, string(env.Data))
}
