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

// Package config resolves process configuration from an environment map.
//
// Every resolver is a pure function of the Environment it receives, so tests
// pass literal maps and cmd/* passes FromOS().
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

// Environment is a snapshot of environment variables.
type Environment map[string]string

// FromOS snapshots the process environment.
func FromOS() Environment {
	return Environment(env.ToMap(os.Environ()))
}

func parse(e Environment, target any) error {
	err := env.ParseWithOptions(target, env.Options{Environment: e})
	if err == nil {
		return nil
	}
	var aggregate env.AggregateError
	if errors.As(err, &aggregate) && len(aggregate.Errors) > 0 {
		var parseErr env.ParseError
		if errors.As(aggregate.Errors[0], &parseErr) {
			return &standarderrors.ConfigError{Key: parseErr.Name, Reason: parseErr.Err.Error()}
		}
	}
	return &standarderrors.ConfigError{Reason: err.Error()}
}

func invalid(key string, format string, args ...any) error {
	return &standarderrors.ConfigError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
