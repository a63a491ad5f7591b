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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/united-manufacturing-hub/service-scaffold/internal/bootstrap"
	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
)

var knownSchemas = map[string]repository.Schema{
	models.UserSchema.Name:  models.UserSchema,
	models.AdminSchema.Name: models.AdminSchema,
}

// selectSchemas returns the named schemas, or all of them in a stable
// order when names is empty.
func selectSchemas(names []string) ([]repository.Schema, error) {
	if len(names) == 0 {
		return []repository.Schema{models.UserSchema, models.AdminSchema}, nil
	}
	out := make([]repository.Schema, 0, len(names))
	for _, name := range names {
		schema, ok := knownSchemas[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown schema %q", name)
		}
		out = append(out, schema)
	}
	return out, nil
}

func newEnsureSchemaCommand(opts *RootOptions) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "ensure-schema",
		Short: "Create missing collections, tables and unique indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemas, err := selectSchemas(names)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := bootstrap.OpenDatabase(ctx, opts.env)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(context.Background()) }()

			// Always synchronize, whatever DB_SYNCHRONIZE says.
			db.Options.Synchronize = true
			ensured := make([]string, 0, len(schemas))
			for _, schema := range schemas {
				if _, err = db.Repository(ctx, schema); err != nil {
					return err
				}
				ensured = append(ensured, schema.Name)
			}
			return opts.output(cmd.OutOrStdout(), map[string]any{"kind": db.Descriptor.Kind, "ensured": ensured}, func(w io.Writer) {
				for _, name := range ensured {
					fmt.Fprintf(w, "ensured %s on %s\n", name, db.Descriptor.Kind)
				}
			})
		},
	}
	cmd.Flags().StringSliceVar(&names, "schema", nil, "schemas to ensure (users, admins); default all")
	return cmd
}
