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

package env_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/private/config"
	"github.com/scionproto/srvpool/private/env"
)

func TestGeneralSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.General
	cfg.Sample(&sample, nil, config.CtxMap{config.ID: "srvpool-1"})
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Equal(t, "srvpool-1", cfg.ID)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, (&env.General{}).Validate())
}

func TestLoggingSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Logging
	config.WriteSample(&sample, nil, nil, &cfg)

	var decoded struct {
		Log env.Logging `toml:"log"`
	}
	require.NoError(t, config.Decode(sample.Bytes(), &decoded))
	var defaults env.Logging
	defaults.InitDefaults()
	assert.Equal(t, defaults, decoded.Log)
	assert.NoError(t, decoded.Log.Validate())
	assert.Equal(t, log.DefaultConsoleLevel, decoded.Log.Console.Level)
}

func TestMetricsSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Metrics
	cfg.Sample(&sample, nil, nil)
	cfg.Prometheus = "garbage"
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Empty(t, cfg.Prometheus)
}

func TestServePrometheusDisabled(t *testing.T) {
	var cfg env.Metrics
	assert.NoError(t, cfg.ServePrometheus(context.Background()))
}

func TestTracingSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Tracing
	cfg.Sample(&sample, nil, nil)
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	var defaults env.Tracing
	defaults.InitDefaults()
	assert.Equal(t, defaults, cfg)
}

func TestNewTracerDisabled(t *testing.T) {
	var cfg env.Tracing
	cfg.InitDefaults()
	tracer, closer, err := cfg.NewTracer("srvpool")
	require.NoError(t, err)
	require.NotNil(t, tracer)
	span := tracer.StartSpan("test")
	span.Finish()
	assert.NoError(t, closer.Close())
}
