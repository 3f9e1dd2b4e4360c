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

package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/log/testlog"
)

func TestConfigValidate(t *testing.T) {
	testCases := map[string]struct {
		cfg         log.Config
		assertError assert.ErrorAssertionFunc
	}{
		"defaults": {
			assertError: assert.NoError,
		},
		"debug json": {
			cfg:         log.Config{Console: log.ConsoleConfig{Level: "DEBUG", Format: "json"}},
			assertError: assert.NoError,
		},
		"invalid level": {
			cfg:         log.Config{Console: log.ConsoleConfig{Level: "chatty"}},
			assertError: assert.Error,
		},
		"invalid format": {
			cfg:         log.Config{Console: log.ConsoleConfig{Format: "xml"}},
			assertError: assert.Error,
		},
		"invalid stacktrace level": {
			cfg:         log.Config{Console: log.ConsoleConfig{StacktraceLevel: "often"}},
			assertError: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			tc.cfg.InitDefaults()
			tc.assertError(t, tc.cfg.Validate())
		})
	}
}

func TestFromCtx(t *testing.T) {
	t.Run("root without logger", func(t *testing.T) {
		assert.Equal(t, log.Root(), log.FromCtx(context.Background()))
	})
	t.Run("embedded logger", func(t *testing.T) {
		l := testlog.NewLogger(t)
		ctx := log.CtxWith(context.Background(), l)
		assert.Equal(t, l, log.FromCtx(ctx))
	})
	t.Run("labels", func(t *testing.T) {
		ctx, l := log.WithLabels(context.Background(), "host", "a.example")
		assert.Equal(t, l, log.FromCtx(ctx))
	})
}

func TestSafeLoggingWithNil(t *testing.T) {
	assert.NotPanics(t, func() {
		log.SafeDebug(nil, "debug")
		log.SafeInfo(nil, "info")
		log.SafeError(nil, "error")
	})
}
