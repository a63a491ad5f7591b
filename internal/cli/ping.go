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
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/united-manufacturing-hub/service-scaffold/internal/bootstrap"
	"github.com/united-manufacturing-hub/service-scaffold/internal/health"
)

func newPingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the database and run one health probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := bootstrap.OpenDatabase(ctx, opts.env)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(context.Background()) }()

			res := db.Prober("").Probe(ctx)
			err = opts.output(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s in %dms\n", res.BackendKind, res.Status, res.ResponseTimeMs)
				if res.Error != "" {
					fmt.Fprintf(w, "error: %s\n", res.Error)
				}
			})
			if err != nil {
				return err
			}
			if res.Status != health.StatusHealthy {
				return errors.New(res.Error)
			}
			return nil
		},
	}
}
