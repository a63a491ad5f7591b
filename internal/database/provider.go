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

// Package database owns the single backend session of a process.
package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

var connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scaffold_database_connect_attempts_total",
	Help: "Connection attempts by backend kind and result",
}, []string{"kind", "result"})

// Options tunes Open.
type Options struct {
	ConnectTimeout  time.Duration
	ConnectAttempts int
	MaxConns        int
	// BackoffSlot and BackoffMax shape the randomised delay between attempts.
	BackoffSlot time.Duration
	BackoffMax  time.Duration
	// Openers overrides the registry. Nil means DefaultOpeners.
	Openers map[config.BackendKind]Opener
}

// OptionsFrom derives provider options from the resolved database options.
func OptionsFrom(o config.DatabaseOptions) Options {
	return Options{
		ConnectTimeout:  o.ConnectTimeout,
		ConnectAttempts: o.ConnectAttempts,
		MaxConns:        o.MaxConns,
	}
}

// Provider establishes and releases the process-wide session.
type Provider struct {
	opts    Options
	log     *zap.SugaredLogger
	mu      sync.Mutex
	session Session
	desc    config.ConnectionDescriptor
}

func NewProvider(opts Options) *Provider {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = internal.DefaultConnectTimeout
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}
	if opts.BackoffSlot <= 0 {
		opts.BackoffSlot = internal.ConnectBackoffSlot
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = internal.ConnectBackoffMax
	}
	if opts.Openers == nil {
		opts.Openers = DefaultOpeners()
	}
	return &Provider{opts: opts, log: logger.For(logger.ComponentDatabase)}
}

// Open connects to the backend described by desc. Once a session exists,
// further calls return it without touching the network.
func (p *Provider) Open(ctx context.Context, desc config.ConnectionDescriptor) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		if desc.Kind != p.desc.Kind {
			p.log.Warnw("Open called with a different backend, keeping existing session",
				"open", p.desc.Kind, "requested", desc.Kind)
		}
		return p.session, nil
	}

	opener, ok := p.opts.Openers[desc.Kind]
	if !ok {
		return nil, &standarderrors.ConfigError{Key: "DB_TYPE", Reason: "no driver available for " + string(desc.Kind)}
	}

	var lastErr error
	for attempt := 1; attempt <= p.opts.ConnectAttempts; attempt++ {
		if attempt > 1 {
			if err := internal.SleepBackedOffContext(ctx, int64(attempt-1), p.opts.BackoffSlot, p.opts.BackoffMax); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
		session, err := opener(attemptCtx, desc, p.opts)
		cancel()
		if err == nil {
			connectAttempts.WithLabelValues(string(desc.Kind), "success").Inc()
			p.session = session
			p.desc = desc
			p.log.Infow("Connected to database", "kind", desc.Kind, "uri", desc.Redacted(), "attempt", attempt)
			return session, nil
		}

		connectAttempts.WithLabelValues(string(desc.Kind), "failure").Inc()
		lastErr = err
		p.log.Warnw("Failed to connect to database", "kind", desc.Kind, "attempt", attempt,
			"attempts", p.opts.ConnectAttempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &standarderrors.ConnectionError{Backend: string(desc.Kind), Op: "open", Err: lastErr}
}

// Session returns the open session or a ConnectionError before Open succeeded.
func (p *Provider) Session() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, &standarderrors.ConnectionError{Backend: string(p.desc.Kind), Op: "session", Err: errors.New("not connected")}
	}
	return p.session, nil
}

// Descriptor returns the descriptor of the open session.
func (p *Provider) Descriptor() config.ConnectionDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desc
}

// Close releases the session. Closing a provider that never opened, or
// closing twice, is a no-op.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	session := p.session
	p.session = nil

	if err := session.close(ctx); err != nil {
		return &standarderrors.ConnectionError{Backend: string(session.Kind()), Op: "close", Err: err}
	}
	p.log.Infow("Database session closed", "kind", session.Kind())
	return nil
}
