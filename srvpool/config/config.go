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

// Package config contains the configuration of the srvpool service.
package config

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/private/util"
	"github.com/scionproto/srvpool/pkg/resolver"
	"github.com/scionproto/srvpool/pkg/resolver/dnssrv"
	"github.com/scionproto/srvpool/private/config"
	"github.com/scionproto/srvpool/private/env"
)

// Defaults.
const (
	DefaultInterval = 30 * time.Second
	DefaultAPIAddr  = "127.0.0.1:30480"

	ResolverModeDNS    = "dns"
	ResolverModeStatic = "static"
)

var _ config.Config = (*Config)(nil)

// Config is the configuration of the srvpool service.
type Config struct {
	General  env.General `toml:"general,omitempty"`
	Logging  env.Logging `toml:"log,omitempty"`
	Metrics  env.Metrics `toml:"metrics,omitempty"`
	Tracing  env.Tracing `toml:"tracing,omitempty"`
	API      API         `toml:"api,omitempty"`
	Pool     Pool        `toml:"pool,omitempty"`
	Resolver Resolver    `toml:"resolver,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Pool,
		&cfg.Resolver,
	)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Pool,
		&cfg.Resolver,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: "srvpool"},
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Pool,
		&cfg.Resolver,
	)
}

// API configures the management API.
type API struct {
	config.NoValidator
	// Addr is the address the API is served on. If empty, the API is
	// disabled.
	Addr string `toml:"addr,omitempty"`
}

func (cfg *API) InitDefaults() {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAPIAddr
	}
}

func (cfg *API) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	fmt.Fprint(dst, apiSample)
}

func (cfg *API) ConfigName() string {
	return "api"
}

// Pool configures the endpoint pool.
type Pool struct {
	// Hostname is the name that is resolved. (required)
	Hostname string `toml:"hostname,omitempty"`
	// Interval is the time between the completion of a resolution and the
	// start of the next one.
	Interval util.DurWrap `toml:"interval,omitempty"`
	// Timeout bounds a single resolution. If zero, Interval is used.
	Timeout util.DurWrap `toml:"timeout,omitempty"`
	// Ejection configures the failure detection.
	Ejection Ejection `toml:"ejection,omitempty"`
}

func (cfg *Pool) InitDefaults() {
	if cfg.Interval.Duration == 0 {
		cfg.Interval.Duration = DefaultInterval
	}
}

func (cfg *Pool) Validate() error {
	if cfg.Hostname == "" {
		return serrors.New("pool hostname must be set")
	}
	if cfg.Interval.Duration <= 0 {
		return serrors.New("pool interval must be positive", "interval", cfg.Interval)
	}
	if cfg.Timeout.Duration < 0 {
		return serrors.New("pool timeout must not be negative", "timeout", cfg.Timeout)
	}
	return cfg.Ejection.Validate()
}

func (cfg *Pool) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	fmt.Fprint(dst, poolSample)
	config.WriteSample(dst, path, ctx, &cfg.Ejection)
}

func (cfg *Pool) ConfigName() string {
	return "pool"
}

// Ejection configures the failure detection of the pool. Ejection is
// disabled if neither max_failures nor failure_rate is set.
type Ejection struct {
	config.NoDefaulter
	MaxFailures       int          `toml:"max_failures,omitempty"`
	FailureWindow     util.DurWrap `toml:"failure_window,omitempty"`
	FailureRate       float64      `toml:"failure_rate,omitempty"`
	FailureRateWindow int          `toml:"failure_rate_window,omitempty"`
	ResetTimeout      util.DurWrap `toml:"reset_timeout,omitempty"`
}

// Enabled returns whether ejection is configured.
func (cfg *Ejection) Enabled() bool {
	return cfg.MaxFailures != 0 || cfg.FailureRate != 0 ||
		cfg.FailureWindow.Duration != 0 || cfg.FailureRateWindow != 0 ||
		cfg.ResetTimeout.Duration != 0
}

// EjectionConfig returns the ejection configuration of the pool, or nil if
// ejection is disabled.
func (cfg *Ejection) EjectionConfig() *endpointpool.EjectionConfig {
	if !cfg.Enabled() {
		return nil
	}
	return &endpointpool.EjectionConfig{
		MaxFailures:       cfg.MaxFailures,
		FailureWindow:     cfg.FailureWindow.Duration,
		FailureRate:       cfg.FailureRate,
		FailureRateWindow: cfg.FailureRateWindow,
		ResetTimeout:      cfg.ResetTimeout.Duration,
	}
}

func (cfg *Ejection) Validate() error {
	if c := cfg.EjectionConfig(); c != nil {
		return c.Validate()
	}
	return nil
}

func (cfg *Ejection) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	fmt.Fprint(dst, ejectionSample)
}

func (cfg *Ejection) ConfigName() string {
	return "ejection"
}

// Resolver configures how the pool host name is resolved.
type Resolver struct {
	// Mode is either "dns" or "static".
	Mode string `toml:"mode,omitempty"`
	// Servers are the name servers in host:port form. If empty, the name
	// servers of ResolvConf are used.
	Servers []string `toml:"servers,omitempty"`
	// ResolvConf is the resolver configuration file the name servers are
	// read from if Servers is empty.
	ResolvConf string `toml:"resolv_conf,omitempty"`
	// DefaultPort enables the A/AAAA fallback for names without SRV records.
	DefaultPort int `toml:"default_port,omitempty"`
	// CacheTTL is the time the last good answer is served if the name
	// servers fail. Zero disables the cache.
	CacheTTL util.DurWrap `toml:"cache_ttl,omitempty"`
	// Static lists the endpoints in host:port form for the static mode.
	Static []string `toml:"static,omitempty"`
}

func (cfg *Resolver) InitDefaults() {
	if cfg.Mode == "" {
		cfg.Mode = ResolverModeDNS
	}
	if cfg.ResolvConf == "" {
		cfg.ResolvConf = dnssrv.DefaultResolvConf
	}
}

func (cfg *Resolver) Validate() error {
	switch cfg.Mode {
	case ResolverModeDNS:
		for _, s := range cfg.Servers {
			if _, _, err := net.SplitHostPort(s); err != nil {
				return serrors.Wrap("invalid name server", err, "server", s)
			}
		}
	case ResolverModeStatic:
		if _, err := ParseRecords(cfg.Static); err != nil {
			return err
		}
	default:
		return serrors.New("unknown resolver mode", "mode", cfg.Mode)
	}
	if cfg.DefaultPort < 0 || cfg.DefaultPort > 65535 {
		return serrors.New("invalid default port", "port", cfg.DefaultPort)
	}
	if cfg.CacheTTL.Duration < 0 {
		return serrors.New("cache ttl must not be negative", "ttl", cfg.CacheTTL)
	}
	return nil
}

func (cfg *Resolver) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	fmt.Fprint(dst, resolverSample)
}

func (cfg *Resolver) ConfigName() string {
	return "resolver"
}

// New builds the resolver described by the configuration.
func (cfg *Resolver) New() (resolver.Resolver, error) {
	var r resolver.Resolver
	switch cfg.Mode {
	case ResolverModeStatic:
		records, err := ParseRecords(cfg.Static)
		if err != nil {
			return nil, err
		}
		r = resolver.Static(records)
	case ResolverModeDNS:
		servers := cfg.Servers
		if len(servers) == 0 {
			var err error
			if servers, err = dnssrv.ServersFromResolvConf(cfg.ResolvConf); err != nil {
				return nil, err
			}
		}
		r = &dnssrv.Resolver{
			Servers:     servers,
			DefaultPort: cfg.DefaultPort,
		}
	default:
		return nil, serrors.New("unknown resolver mode", "mode", cfg.Mode)
	}
	if cfg.CacheTTL.Duration > 0 {
		r = resolver.NewCached(r, cfg.CacheTTL.Duration)
	}
	return r, nil
}

// ParseRecords parses endpoints in host:port form.
func ParseRecords(raw []string) ([]resolver.Record, error) {
	records := make([]resolver.Record, 0, len(raw))
	for _, s := range raw {
		host, portStr, err := net.SplitHostPort(s)
		if err != nil {
			return nil, serrors.Wrap("invalid endpoint", err, "endpoint", s)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, serrors.Wrap("invalid endpoint port", err, "endpoint", s)
		}
		if host == "" {
			return nil, serrors.New("endpoint without host", "endpoint", s)
		}
		records = append(records, resolver.Record{Name: host, Port: int(port)})
	}
	return records, nil
}
