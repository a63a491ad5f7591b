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

package internal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout matches the grace period Kubernetes gives a pod
// between SIGTERM and SIGKILL.
const DefaultShutdownTimeout = 30 * time.Second

type GracefulShutdownHandler interface {
	Shutdown()          // Triggers a graceful shutdown programmatically.
	ShuttingDown() bool // Quickly checks if a shutdown is in progress.
	Wait()              // Blocks until shutdown tasks are complete.
}

// exit is replaced in tests.
var exit = os.Exit

type gracefulShutdown struct {
	quit         chan os.Signal
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// NewGracefulShutdown traps SIGINT/SIGTERM and runs onShutdown (if not nil)
// with a context that expires after timeout. Servers should be stopped first
// and the database provider closed last. The process exits once the tasks
// return, or with status 1 when they overrun the timeout.
func NewGracefulShutdown(timeout time.Duration, onShutdown func(ctx context.Context) error) GracefulShutdownHandler {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	gs := &gracefulShutdown{
		quit: make(chan os.Signal, 1),
	}
	gs.wg.Add(1)
	signal.Notify(gs.quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer gs.wg.Done()
		sig := <-gs.quit
		signal.Stop(gs.quit)
		gs.shuttingDown.Store(true)
		zap.S().Infow("Received signal, shutting down", "signal", sig.String())

		code := 0
		if onShutdown != nil {
			zap.S().Infow("Waiting for shutdown tasks to complete", "timeout", timeout)
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			done := make(chan error, 1)
			go func() { done <- onShutdown(ctx) }()

			select {
			case err := <-done:
				if err != nil {
					zap.S().Errorw("Error during shutdown", "error", err)
					code = 1
				}
			case <-ctx.Done():
				zap.S().Errorw("Shutdown tasks did not complete in time", "timeout", timeout)
				code = 1
			}
			cancel()
		}
		if code == 0 {
			zap.S().Info("Shutdown tasks completed. Ready to exit.")
		}
		_ = zap.S().Sync()
		exit(code)
	}()

	return gs
}

func (gs *gracefulShutdown) ShuttingDown() bool {
	return gs.shuttingDown.Load()
}

func (gs *gracefulShutdown) Shutdown() {
	// Only the first caller delivers the signal.
	if gs.shuttingDown.CompareAndSwap(false, true) {
		gs.quit <- syscall.SIGTERM
	}
}

func (gs *gracefulShutdown) Wait() {
	gs.wg.Wait()
}
