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

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/private/util"
	"github.com/scionproto/srvpool/pkg/resolver/dnssrv"
	"github.com/scionproto/srvpool/srvpool/config"
)

func newResolve() *cobra.Command {
	var flags struct {
		resolver config.Resolver
		timeout  util.DurWrap
		format   string
		logLevel string
	}
	flags.timeout.Duration = 5 * time.Second

	cmd := &cobra.Command{
		Use:   "resolve <hostname>",
		Short: "Resolve a host name once and print the endpoints",
		Long: `'resolve' resolves the host name the same way the service does and prints
the endpoints in the order of the answer.

Names of the form _service._proto.domain are resolved with SRV queries. If
--default-port is set, names without SRV records are resolved with A and AAAA
queries instead.`,
		Example: `  srvpool resolve _api._tcp.example.com
  srvpool resolve --server 127.0.0.1:53 --format json _api._tcp.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Setup(log.Config{
				Console: log.ConsoleConfig{Level: flags.logLevel},
			}); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			defer log.Flush()
			if err := validateFormat(flags.format); err != nil {
				return err
			}
			flags.resolver.Mode = config.ResolverModeDNS
			flags.resolver.InitDefaults()
			if err := flags.resolver.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			r, err := flags.resolver.New()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout.Duration)
			defer cancel()
			records, err := r.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if flags.format == "human" {
				renderRecords(cmd.OutOrStdout(), args[0], records)
				return nil
			}
			return encode(cmd.OutOrStdout(), flags.format, records)
		},
	}
	cmd.Flags().StringSliceVar(&flags.resolver.Servers, "server", nil,
		"Name server in host:port form, can be repeated (default from resolv.conf)")
	cmd.Flags().StringVar(&flags.resolver.ResolvConf, "resolv-conf", dnssrv.DefaultResolvConf,
		"Resolver configuration the name servers are read from")
	cmd.Flags().IntVar(&flags.resolver.DefaultPort, "default-port", 0,
		"Port for names without SRV records, 0 disables the A/AAAA fallback")
	cmd.Flags().Var(&flags.timeout, "timeout", "Timeout of the resolution")
	cmd.Flags().StringVar(&flags.format, "format", "human", formatUsage)
	cmd.Flags().StringVar(&flags.logLevel, "log.level", "error",
		"Console logging level (debug|info|error)")
	return cmd
}
