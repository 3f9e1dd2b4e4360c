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

package prom_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/scionproto/srvpool/pkg/private/prom"
	"github.com/scionproto/srvpool/pkg/private/serrors"
)

func TestErrLabel(t *testing.T) {
	testCases := map[string]struct {
		err  error
		want string
	}{
		"nil":      {err: nil, want: prom.Success},
		"canceled": {err: serrors.Wrap("resolving", context.Canceled), want: prom.ErrCanceled},
		"deadline": {err: context.DeadlineExceeded, want: prom.ErrTimeout},
		"other":    {err: serrors.New("boom"), want: prom.ErrNotClassified},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, prom.ErrLabel(tc.err))
		})
	}
}

func TestSafeRegister(t *testing.T) {
	newCounter := func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prom_test_safe_register_total",
			Help: "Test counter",
		})
	}
	first := prom.SafeRegister(newCounter())
	second := prom.SafeRegister(newCounter())
	assert.Same(t, first, second)
}
