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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubExit(t *testing.T) <-chan int {
	codes := make(chan int, 1)
	previous := exit
	exit = func(code int) { codes <- code }
	t.Cleanup(func() { exit = previous })
	return codes
}

func httptestBasicServer(gs GracefulShutdownHandler) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if gs.ShuttingDown() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		gs.Shutdown()
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func Test_NewGracefulShutdown(t *testing.T) {
	codes := stubExit(t)

	var reqWg sync.WaitGroup
	var testSrv *httptest.Server
	var providerClosed bool

	gs := NewGracefulShutdown(time.Second, func(ctx context.Context) error {
		reqWg.Wait()
		testSrv.Close()
		providerClosed = true
		return nil
	})

	testSrv = httptestBasicServer(gs)
	healthRoute := fmt.Sprintf("%s/health", testSrv.URL)
	shutdownRoute := fmt.Sprintf("%s/shutdown", testSrv.URL)

	// Order of requests is important.
	tcs := []struct {
		url                string
		expectedStatusCode int
	}{
		{healthRoute, http.StatusOK},
		{shutdownRoute, http.StatusOK},
		{healthRoute, http.StatusServiceUnavailable},
	}

	reqWg.Add(len(tcs))
	for _, tc := range tcs {
		t.Run(fmt.Sprintf("request %s", tc.url), func(t *testing.T) {
			defer reqWg.Done()

			res, err := http.Get(tc.url)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, tc.expectedStatusCode, res.StatusCode)
		})
	}

	gs.Wait()
	assert.True(t, providerClosed)
	assert.Equal(t, 0, <-codes)
}

func Test_GracefulShutdownReportsFailure(t *testing.T) {
	codes := stubExit(t)

	gs := NewGracefulShutdown(time.Second, func(ctx context.Context) error {
		return errors.New("close provider: timeout")
	})
	gs.Shutdown()
	gs.Shutdown()
	gs.Wait()

	assert.True(t, gs.ShuttingDown())
	assert.Equal(t, 1, <-codes)
}

func Test_GracefulShutdownTimeout(t *testing.T) {
	codes := stubExit(t)

	gs := NewGracefulShutdown(20*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	gs.Shutdown()
	gs.Wait()

	assert.Equal(t, 1, <-codes)
}
