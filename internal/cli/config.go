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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/united-manufacturing-hub/service-scaffold/internal/config"
)

type configView struct {
	Kind            config.BackendKind `json:"kind"`
	URI             string             `json:"uri"`
	Host            string             `json:"host"`
	Port            int                `json:"port"`
	Database        string             `json:"database"`
	ConnectTimeout  string             `json:"connectTimeout"`
	ConnectAttempts int                `json:"connectAttempts"`
	QueryTimeout    string             `json:"queryTimeout"`
	Synchronize     bool               `json:"synchronize"`
}

func newConfigCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved database configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, err := config.Resolve(opts.env)
			if err != nil {
				return err
			}
			dbOpts, err := config.ResolveDatabaseOptions(opts.env)
			if err != nil {
				return err
			}
			view := configView{
				Kind:            desc.Kind,
				URI:             desc.Redacted(),
				Host:            desc.Host,
				Port:            desc.Port,
				Database:        desc.Database,
				ConnectTimeout:  dbOpts.ConnectTimeout.String(),
				ConnectAttempts: dbOpts.ConnectAttempts,
				QueryTimeout:    dbOpts.QueryTimeout.String(),
				Synchronize:     dbOpts.Synchronize,
			}
			return opts.output(cmd.OutOrStdout(), view, func(w io.Writer) {
				fmt.Fprintf(w, "kind:             %s\n", view.Kind)
				fmt.Fprintf(w, "uri:              %s\n", view.URI)
				fmt.Fprintf(w, "database:         %s\n", view.Database)
				fmt.Fprintf(w, "connect timeout:  %s (%d attempts)\n", view.ConnectTimeout, view.ConnectAttempts)
				fmt.Fprintf(w, "query timeout:    %s\n", view.QueryTimeout)
				fmt.Fprintf(w, "synchronize:      %t\n", view.Synchronize)
			})
		},
	}
}
