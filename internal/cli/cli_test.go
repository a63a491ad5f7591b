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

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

func run(t *testing.T, env config.Environment, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigRedactsPassword(t *testing.T) {
	env := config.Environment{
		"DB_TYPE":     "postgres",
		"DB_HOST":     "db.internal",
		"DB_USERNAME": "app",
		"DB_PASSWORD": "s3cret",
		"DB_NAME":     "shop",
	}

	out, err := run(t, env, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "postgresql")
	assert.Contains(t, out, "db.internal")
	assert.NotContains(t, out, "s3cret")

	out, err = run(t, env, "config", "--format", "json")
	require.NoError(t, err)
	var view configView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, config.RelationalA, view.Kind)
	assert.Equal(t, 5432, view.Port)
	assert.Equal(t, "shop", view.Database)
	assert.NotContains(t, view.URI, "s3cret")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, config.Environment{}, "config", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestUnsupportedKindFailsBeforeConnecting(t *testing.T) {
	for _, sub := range []string{"config", "ping", "ensure-schema"} {
		_, err := run(t, config.Environment{"DB_TYPE": "oracle"}, sub)
		assert.ErrorIs(t, err, standarderrors.ErrConfig, sub)
	}
}

func TestEnsureSchemaRejectsUnknownSchema(t *testing.T) {
	_, err := run(t, config.Environment{}, "ensure-schema", "--schema", "orders")
	assert.ErrorContains(t, err, `unknown schema "orders"`)
}

func TestSelectSchemas(t *testing.T) {
	all, err := selectSchemas(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "users", all[0].Name)

	one, err := selectSchemas([]string{" admins"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "admins", one[0].Name)
}
