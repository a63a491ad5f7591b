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

// Package standarderrors holds the error taxonomy shared by every service.
//
// Each category has a sentinel that callers match with errors.Is and a
// structured type that carries details and can be extracted with errors.As.
package standarderrors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks invalid or unsupported configuration. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrConnection marks a backend that cannot be reached or answered with
	// a transport-level failure.
	ErrConnection = errors.New("backend connection failed")

	// ErrDuplicate marks a violated uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound marks a mutation against an id that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation marks caller input with the wrong shape.
	ErrValidation = errors.New("validation failed")

	// ErrCacheUnavailable marks a cache store that could not serve a request.
	// It is never fatal.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ConfigError describes a configuration value that cannot be used.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", ErrConfig, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Key, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ConnectionError wraps a failure talking to a backend.
type ConnectionError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", ErrConnection, e.Backend, e.Op)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrConnection, e.Backend, e.Op, e.Err)
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Err }

// DuplicateError reports the field and value that collided.
type DuplicateError struct {
	Collection string
	Field      string
	Value      any
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s with %s %v already exists", ErrDuplicate, e.Collection, e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// NotFoundError reports the id that did not resolve.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrNotFound, e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a single offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CacheUnavailableError wraps a failed cache store operation.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCacheUnavailable, e.Op, e.Err)
}

func (e *CacheUnavailableError) Is(target error) bool { return target == ErrCacheUnavailable }

func (e *CacheUnavailableError) Unwrap() error { return e.Err }

// IsPersistence reports whether err belongs to the persistence categories
// (as opposed to validation or cache errors).
func IsPersistence(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotFound)
}
