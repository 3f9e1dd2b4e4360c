// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/srvpool/config"
	"github.com/scionproto/srvpool/srvpool/mgmtapi"
)

// statusOutput is the machine readable output of the status command.
type statusOutput struct {
	mgmtapi.StatusResponse `yaml:",inline"`
	Endpoints              []endpointpool.EndpointInfo `json:"endpoints" yaml:"endpoints"`
}

func newStatus() *cobra.Command {
	var flags struct {
		api     string
		timeout time.Duration
		format  string
		noColor bool
		resolve bool
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the endpoint pool of a running service",
		Example: `  srvpool status
  srvpool status --api 127.0.0.1:30480 --format yaml
  srvpool status --resolve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(flags.format); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			client := mgmtapi.Client{Addr: flags.api}
			if flags.resolve {
				if err := client.TriggerResolution(ctx); err != nil {
					return serrors.Wrap("triggering resolution", err)
				}
			}
			st, err := client.Status(ctx)
			if err != nil {
				return serrors.Wrap("fetching status", err)
			}
			endpoints, err := client.Endpoints(ctx)
			if err != nil {
				return serrors.Wrap("fetching endpoints", err)
			}
			if flags.format == "human" {
				out := cmd.OutOrStdout()
				renderStatus(out, st, endpoints, time.Now(), useColor(out, flags.noColor))
				return nil
			}
			return encode(cmd.OutOrStdout(), flags.format, statusOutput{
				StatusResponse: st,
				Endpoints:      endpoints,
			})
		},
	}
	cmd.Flags().StringVar(&flags.api, "api", config.DefaultAPIAddr,
		"Address of the management API of the service")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "Timeout")
	cmd.Flags().StringVar(&flags.format, "format", "human", formatUsage)
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&flags.resolve, "resolve", false,
		"Trigger a resolution before fetching the status")
	return cmd
}
