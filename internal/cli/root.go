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

// Package cli implements dbctl, the operator tool for inspecting the
// database configuration and preparing schemas.
package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	Timeout time.Duration
	env     config.Environment
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates dbctl. env is the environment the configuration is
// resolved from.
func NewRootCommand(env config.Environment) *cobra.Command {
	opts := &RootOptions{env: env}

	cmd := &cobra.Command{
		Use:           "dbctl",
		Short:         "Inspect and prepare the configured database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall deadline of the command")

	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newEnsureSchemaCommand(opts))
	return cmd
}

// output writes v as JSON or through text.
func (o *RootOptions) output(w io.Writer, v any, text func(io.Writer)) error {
	if o.Format == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	text(w)
	return nil
}
