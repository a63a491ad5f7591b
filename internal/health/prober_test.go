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

package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// fakeSession embeds database.Session to satisfy its unexported close
// method; the prober never calls it.
type fakeSession struct {
	database.Session
	kind config.BackendKind
	ping func(ctx context.Context) error
}

func (f *fakeSession) Kind() config.BackendKind { return f.kind }

func (f *fakeSession) Ping(ctx context.Context) error { return f.ping(ctx) }

// bareSession supports neither Ping nor RunStatement.
type bareSession struct {
	database.Session
	kind config.BackendKind
}

func (b *bareSession) Kind() config.BackendKind { return b.kind }

type staticSource struct {
	session database.Session
	err     error
}

func (s staticSource) Session() (database.Session, error) { return s.session, s.err }

func TestProbeHealthyDocument(t *testing.T) {
	source := staticSource{session: &fakeSession{kind: config.Document, ping: func(context.Context) error { return nil }}}
	p := NewProber(source, config.Document, Options{Environment: "test"})

	assert.Equal(t, StatusUnknown, p.Last().Status)

	res := p.Probe(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, config.Document, res.BackendKind)
	assert.Empty(t, res.Error)
	assert.Equal(t, res, p.Last())

	report := p.Report(context.Background())
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "connected", report.Database.Status)
	assert.Equal(t, "test", report.Environment)
	assert.Equal(t, http.StatusOK, report.HTTPStatus())
}

func TestProbeDegradedCases(t *testing.T) {
	tcs := []struct {
		name   string
		source SessionSource
	}{
		{"nil source", nil},
		{"no session yet", staticSource{err: &standarderrors.ConnectionError{Backend: "mongodb", Op: "session", Err: errors.New("not connected")}}},
		{"ping error", staticSource{session: &fakeSession{kind: config.Document, ping: func(context.Context) error {
			return errors.New("server selection timeout")
		}}}},
		{"ping panics", staticSource{session: &fakeSession{kind: config.Document, ping: func(context.Context) error {
			panic("driver bug")
		}}}},
		{"ping times out", staticSource{session: &fakeSession{kind: config.Document, ping: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}}},
		{"document without ping", staticSource{session: &bareSession{kind: config.Document}}},
		{"relational without statements", staticSource{session: &bareSession{kind: config.RelationalB}}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProber(tc.source, config.Document, Options{Timeout: 20 * time.Millisecond})

			var res Result
			assert.NotPanics(t, func() { res = p.Probe(context.Background()) })
			assert.Equal(t, StatusDegraded, res.Status)
			assert.NotEmpty(t, res.Error)

			report := p.Report(context.Background())
			assert.Equal(t, "error", report.Status)
			assert.Equal(t, "disconnected", report.Database.Status)
			assert.Equal(t, http.StatusServiceUnavailable, report.HTTPStatus())

			assert.False(t, p.Readiness(context.Background()).Ready)
			assert.True(t, p.Liveness().Alive)
		})
	}
}

func TestProbeRelationalRunsSelectOne(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection reset by peer"))

	p := NewProber(staticSource{session: database.NewPostgresSession(mock)}, config.RelationalA, Options{})

	assert.Equal(t, StatusHealthy, p.Probe(context.Background()).Status)

	res := p.Probe(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Error, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbeReevaluatesEveryCall(t *testing.T) {
	healthy := true
	session := &fakeSession{kind: config.Document, ping: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}}
	p := NewProber(staticSource{session: session}, config.Document, Options{})

	assert.True(t, p.Readiness(context.Background()).Ready)
	healthy = false
	assert.False(t, p.Readiness(context.Background()).Ready)
	healthy = true
	assert.True(t, p.Readiness(context.Background()).Ready)
}

func TestHealthcheckHandler(t *testing.T) {
	session := &fakeSession{kind: config.Document, ping: func(context.Context) error { return errors.New("down") }}
	p := NewProber(staticSource{session: session}, config.Document, Options{})
	h := p.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
