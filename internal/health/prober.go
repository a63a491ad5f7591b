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

// Package health reports whether the backend session can serve requests.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/internal/database"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
)

var probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "scaffold_health_probe_duration_seconds",
	Help:    "Duration of database health probes",
	Buckets: prometheus.DefBuckets,
}, []string{"kind", "status"})

// Status is the outcome of a probe.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// SessionSource hands out the current session. *database.Provider
// satisfies it.
type SessionSource interface {
	Session() (database.Session, error)
}

// Result is a single probe outcome.
type Result struct {
	Status         Status             `json:"status"`
	BackendKind    config.BackendKind `json:"backendKind"`
	ResponseTimeMs int64              `json:"responseTimeMs"`
	Error          string             `json:"error,omitempty"`
	CheckedAt      time.Time          `json:"checkedAt"`
}

// Options tunes the prober.
type Options struct {
	// Timeout bounds each probe.
	Timeout time.Duration
	// Environment is echoed in the report.
	Environment string
	// GoroutineThreshold is the liveness limit of the healthcheck handler.
	GoroutineThreshold int
}

// Prober evaluates backend health on every call.
type Prober struct {
	source  SessionSource
	kind    config.BackendKind
	opts    Options
	started time.Time
	log     *zap.SugaredLogger

	mu   sync.RWMutex
	last Result
}

func NewProber(source SessionSource, kind config.BackendKind, opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = internal.FiveSeconds
	}
	if opts.GoroutineThreshold <= 0 {
		opts.GoroutineThreshold = 1000
	}
	return &Prober{
		source:  source,
		kind:    kind,
		opts:    opts,
		started: time.Now(),
		log:     logger.For(logger.ComponentHealth),
		last:    Result{Status: StatusUnknown, BackendKind: kind},
	}
}

// Probe checks the session. It never returns an error or panics: every
// failure is reported as StatusDegraded with a non-empty Error.
func (p *Prober) Probe(ctx context.Context) Result {
	start := time.Now()
	err := p.check(ctx)

	res := Result{
		Status:         StatusHealthy,
		BackendKind:    p.kind,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		CheckedAt:      time.Now().UTC(),
	}
	if err != nil {
		res.Status = StatusDegraded
		res.Error = err.Error()
		if res.Error == "" {
			res.Error = "probe failed"
		}
		p.log.Debugw("Database probe failed", "kind", p.kind, "error", res.Error)
	}
	probeDuration.WithLabelValues(string(p.kind), string(res.Status)).Observe(time.Since(start).Seconds())

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
	return res
}

func (p *Prober) check(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	if p.source == nil {
		return errors.New("no session source")
	}
	session, err := p.source.Session()
	if err != nil {
		return err
	}
	if session == nil {
		return errors.New("no session")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if session.Kind() == config.Document {
		pinger, ok := session.(database.Pinger)
		if !ok {
			return fmt.Errorf("%s session does not support ping", session.Kind())
		}
		return pinger.Ping(ctx)
	}
	runner, ok := session.(database.StatementRunner)
	if !ok {
		return fmt.Errorf("%s session does not run statements", session.Kind())
	}
	return runner.RunStatement(ctx, "SELECT 1")
}

// Last returns the most recent result, StatusUnknown before the first probe.
func (p *Prober) Last() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Readiness is ready iff the backend is healthy.
type Readiness struct {
	Ready  bool   `json:"ready"`
	Result Result `json:"database"`
}

func (p *Prober) Readiness(ctx context.Context) Readiness {
	res := p.Probe(ctx)
	return Readiness{Ready: res.Status == StatusHealthy, Result: res}
}

// Liveness does not depend on the backend.
type Liveness struct {
	Alive  bool    `json:"alive"`
	Uptime float64 `json:"uptime"`
}

func (p *Prober) Liveness() Liveness {
	return Liveness{Alive: true, Uptime: time.Since(p.started).Seconds()}
}

// DatabaseReport is the database section of Report.
type DatabaseReport struct {
	Type           config.BackendKind `json:"type"`
	Status         string             `json:"status"`
	ResponseTimeMs int64              `json:"responseTimeMs"`
	Error          string             `json:"error,omitempty"`
}

// Report is the body of the /health endpoint.
type Report struct {
	Status        string         `json:"status"`
	Database      DatabaseReport `json:"database"`
	Uptime        float64        `json:"uptime"`
	MemoryUsageMb float64        `json:"memoryUsageMb"`
	Timestamp     time.Time      `json:"timestamp"`
	Environment   string         `json:"environment"`
}

// HTTPStatus is 200 when the backend is connected and 503 otherwise.
func (r Report) HTTPStatus() int {
	if r.Status == "ok" {
		return 200
	}
	return 503
}

func (p *Prober) Report(ctx context.Context) Report {
	res := p.Probe(ctx)
	report := Report{
		Status: "ok",
		Database: DatabaseReport{
			Type:           res.BackendKind,
			Status:         "connected",
			ResponseTimeMs: res.ResponseTimeMs,
		},
		Uptime:        time.Since(p.started).Seconds(),
		MemoryUsageMb: memoryUsageMb(),
		Timestamp:     res.CheckedAt,
		Environment:   p.opts.Environment,
	}
	if res.Status != StatusHealthy {
		report.Status = "error"
		report.Database.Status = "disconnected"
		report.Database.Error = res.Error
	}
	return report
}

func memoryUsageMb() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

// ReadinessCheck adapts the prober to a healthcheck.Check.
func (p *Prober) ReadinessCheck() healthcheck.Check {
	return func() error {
		res := p.Probe(context.Background())
		if res.Status != StatusHealthy {
			return errors.New(res.Error)
		}
		return nil
	}
}

// Handler returns a healthcheck handler serving /live and /ready.
func (p *Prober) Handler() healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(p.opts.GoroutineThreshold))
	h.AddReadinessCheck("database", p.ReadinessCheck())
	return h
}
