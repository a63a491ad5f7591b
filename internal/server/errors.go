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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// ErrUnauthorized is returned by the request guard.
var ErrUnauthorized = errors.New("unauthorized")

// StatusFor maps an error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, standarderrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, standarderrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, standarderrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, standarderrors.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Error      string    `json:"error"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
}

// respondError aborts the request. Internal errors are logged and their
// details withheld from the client.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		zap.S().Errorw("Request failed", "path", c.Request.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			message = "The server had an internal error."
		}
	}
	c.AbortWithStatusJSON(status, errorBody{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
		Path:       c.Request.URL.Path,
		Timestamp:  time.Now().UTC(),
	})
}

// invalidInput reports a binding failure as a validation error.
func invalidInput(c *gin.Context, err error) {
	respondError(c, &standarderrors.ValidationError{Reason: err.Error()})
}
