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

import "time"

// Default backend ports when DB_PORT is unset.
const (
	DefaultMongoPort    = 27017
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306
)

// Connection and query defaults.
const (
	DefaultConnectTimeout  = 5 * time.Second
	DefaultConnectAttempts = 5
	DefaultQueryTimeout    = 10 * time.Second
	// ConnectBackoffSlot is the slot time for the randomised backoff between
	// connection attempts.
	ConnectBackoffSlot = 100 * time.Millisecond
	ConnectBackoffMax  = 5 * time.Second
)

// FiveSeconds is used as the per-probe deadline.
const FiveSeconds = 5 * time.Second
