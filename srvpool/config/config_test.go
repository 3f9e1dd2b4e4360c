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

package config_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/private/util"
	"github.com/scionproto/srvpool/pkg/resolver"
	"github.com/scionproto/srvpool/pkg/resolver/dnssrv"
	libconfig "github.com/scionproto/srvpool/private/config"
	"github.com/scionproto/srvpool/srvpool/config"
)

func TestSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg config.Config
	cfg.Sample(&sample, nil, nil)

	var decoded config.Config
	require.NoError(t, libconfig.Decode(sample.Bytes(), &decoded))
	decoded.InitDefaults()
	require.NoError(t, decoded.Validate())

	assert.Equal(t, "srvpool", decoded.General.ID)
	assert.Equal(t, config.DefaultAPIAddr, decoded.API.Addr)
	assert.Equal(t, "localhost:6831", decoded.Tracing.Agent)
	assert.Nil(t, decoded.Pool.Ejection.EjectionConfig())

	wantPool := config.Pool{
		Hostname: "_api._tcp.example.com",
		Interval: util.DurWrap{Duration: config.DefaultInterval},
	}
	if diff := cmp.Diff(wantPool, decoded.Pool); diff != "" {
		t.Errorf("pool mismatch (-want +got):\n%s", diff)
	}
	wantResolver := config.Resolver{
		Mode:       config.ResolverModeDNS,
		ResolvConf: dnssrv.DefaultResolvConf,
	}
	if diff := cmp.Diff(wantResolver, decoded.Resolver, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("resolver mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolValidate(t *testing.T) {
	valid := func() config.Pool {
		p := config.Pool{Hostname: "example.com"}
		p.InitDefaults()
		return p
	}
	testCases := map[string]struct {
		modify  func(*config.Pool)
		wantErr bool
	}{
		"defaults": {
			modify: func(*config.Pool) {},
		},
		"no hostname": {
			modify:  func(p *config.Pool) { p.Hostname = "" },
			wantErr: true,
		},
		"negative timeout": {
			modify:  func(p *config.Pool) { p.Timeout = util.DurWrap{Duration: -time.Second} },
			wantErr: true,
		},
		"count window": {
			modify: func(p *config.Pool) {
				p.Ejection = config.Ejection{
					MaxFailures:   3,
					FailureWindow: util.DurWrap{Duration: time.Second},
					ResetTimeout:  util.DurWrap{Duration: time.Second},
				}
			},
		},
		"reset timeout only": {
			modify: func(p *config.Pool) {
				p.Ejection = config.Ejection{
					ResetTimeout: util.DurWrap{Duration: time.Second},
				}
			},
			wantErr: true,
		},
		"incomplete rate window": {
			modify: func(p *config.Pool) {
				p.Ejection = config.Ejection{
					FailureRate:  0.5,
					ResetTimeout: util.DurWrap{Duration: time.Second},
				}
			},
			wantErr: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p := valid()
			tc.modify(&p)
			err := p.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEjectionConfig(t *testing.T) {
	e := config.Ejection{
		FailureRate:       0.25,
		FailureRateWindow: 8,
		ResetTimeout:      util.DurWrap{Duration: time.Minute},
	}
	assert.Equal(t, &endpointpool.EjectionConfig{
		FailureRate:       0.25,
		FailureRateWindow: 8,
		ResetTimeout:      time.Minute,
	}, e.EjectionConfig())
}

func TestResolverValidate(t *testing.T) {
	testCases := map[string]struct {
		cfg     config.Resolver
		wantErr bool
	}{
		"dns": {
			cfg: config.Resolver{Mode: "dns", Servers: []string{"127.0.0.1:53"}},
		},
		"dns server without port": {
			cfg:     config.Resolver{Mode: "dns", Servers: []string{"127.0.0.1"}},
			wantErr: true,
		},
		"static": {
			cfg: config.Resolver{Mode: "static", Static: []string{"a:1", "[::1]:2"}},
		},
		"static invalid port": {
			cfg:     config.Resolver{Mode: "static", Static: []string{"a:http"}},
			wantErr: true,
		},
		"static without host": {
			cfg:     config.Resolver{Mode: "static", Static: []string{":80"}},
			wantErr: true,
		},
		"unknown mode": {
			cfg:     config.Resolver{Mode: "mdns"},
			wantErr: true,
		},
		"invalid default port": {
			cfg:     config.Resolver{Mode: "dns", DefaultPort: 70000},
			wantErr: true,
		},
		"negative cache ttl": {
			cfg: config.Resolver{Mode: "dns",
				CacheTTL: util.DurWrap{Duration: -time.Second}},
			wantErr: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolverNew(t *testing.T) {
	t.Run("static", func(t *testing.T) {
		cfg := config.Resolver{Mode: "static", Static: []string{"a:1", "[::1]:2"}}
		r, err := cfg.New()
		require.NoError(t, err)
		records, err := r.Resolve(context.Background(), "ignored")
		require.NoError(t, err)
		assert.Equal(t, []resolver.Record{{Name: "a", Port: 1}, {Name: "::1", Port: 2}},
			records)
	})
	t.Run("dns with explicit servers", func(t *testing.T) {
		cfg := config.Resolver{Mode: "dns", Servers: []string{"127.0.0.1:53"},
			DefaultPort: 443}
		r, err := cfg.New()
		require.NoError(t, err)
		d, ok := r.(*dnssrv.Resolver)
		require.True(t, ok)
		assert.Equal(t, []string{"127.0.0.1:53"}, d.Servers)
		assert.Equal(t, 443, d.DefaultPort)
	})
	t.Run("cached", func(t *testing.T) {
		cfg := config.Resolver{Mode: "static", Static: []string{"a:1"},
			CacheTTL: util.DurWrap{Duration: time.Minute}}
		r, err := cfg.New()
		require.NoError(t, err)
		assert.IsType(t, &resolver.Cached{}, r)
	})
	t.Run("missing resolv.conf", func(t *testing.T) {
		cfg := config.Resolver{Mode: "dns", ResolvConf: "/nonexistent/resolv.conf"}
		_, err := cfg.New()
		assert.Error(t, err)
	})
}
