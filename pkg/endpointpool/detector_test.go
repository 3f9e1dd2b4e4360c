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

package endpointpool

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scionproto/srvpool/pkg/private/xtest"
	"github.com/scionproto/srvpool/pkg/resolver"
)

var errFailed = errors.New("request failed")

func TestEjectionConfigValidate(t *testing.T) {
	testCases := map[string]struct {
		cfg     EjectionConfig
		wantErr bool
	}{
		"count window": {
			cfg: EjectionConfig{MaxFailures: 2, FailureWindow: time.Second,
				ResetTimeout: time.Second},
		},
		"rate window": {
			cfg: EjectionConfig{FailureRate: 0.5, FailureRateWindow: 4,
				ResetTimeout: time.Second},
		},
		"rate of one": {
			cfg: EjectionConfig{FailureRate: 1, FailureRateWindow: 2,
				ResetTimeout: time.Second},
		},
		"neither": {
			cfg:     EjectionConfig{ResetTimeout: time.Second},
			wantErr: true,
		},
		"both": {
			cfg: EjectionConfig{MaxFailures: 2, FailureWindow: time.Second,
				FailureRate: 0.5, FailureRateWindow: 4, ResetTimeout: time.Second},
			wantErr: true,
		},
		"max failures without window": {
			cfg:     EjectionConfig{MaxFailures: 2, ResetTimeout: time.Second},
			wantErr: true,
		},
		"window without max failures": {
			cfg:     EjectionConfig{FailureWindow: time.Second, ResetTimeout: time.Second},
			wantErr: true,
		},
		"rate without window": {
			cfg:     EjectionConfig{FailureRate: 0.5, ResetTimeout: time.Second},
			wantErr: true,
		},
		"rate window without rate": {
			cfg:     EjectionConfig{FailureRateWindow: 4, ResetTimeout: time.Second},
			wantErr: true,
		},
		"rate above one": {
			cfg: EjectionConfig{FailureRate: 1.5, FailureRateWindow: 4,
				ResetTimeout: time.Second},
			wantErr: true,
		},
		"rate not a number": {
			cfg: EjectionConfig{FailureRate: math.NaN(), FailureRateWindow: 4,
				ResetTimeout: time.Second},
			wantErr: true,
		},
		"no reset timeout": {
			cfg:     EjectionConfig{MaxFailures: 2, FailureWindow: time.Second},
			wantErr: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCountWindowDetector(t *testing.T) {
	clock := xtest.NewClock(time.Unix(1000, 0))
	d := newFailureDetector(&EjectionConfig{
		MaxFailures:   2,
		FailureWindow: 10 * time.Second,
		ResetTimeout:  10 * time.Second,
	}, clock.Now)
	e := newEndpoint(resolver.Record{Name: "a", Port: 1})

	d.ReportOutcome(e, errFailed)
	assert.False(t, d.IsEjected(e))
	clock.Advance(5 * time.Second)
	d.ReportOutcome(e, errFailed)
	assert.True(t, d.IsEjected(e), "two failures within the window")

	d.Reset(e)
	assert.False(t, d.IsEjected(e))

	// Failures that fall out of the window are pruned.
	d.ReportOutcome(e, errFailed)
	clock.Advance(10*time.Second + time.Millisecond)
	d.ReportOutcome(e, errFailed)
	assert.False(t, d.IsEjected(e), "first failure is outside the window")

	// A success clears the history.
	d.ReportOutcome(e, nil)
	d.ReportOutcome(e, errFailed)
	assert.False(t, d.IsEjected(e))
	d.ReportOutcome(e, errFailed)
	assert.True(t, d.IsEjected(e))
}

func TestRateWindowDetector(t *testing.T) {
	testCases := map[string]struct {
		rate     float64
		window   int
		outcomes []error
		want     bool
	}{
		"three of four": {
			rate: 0.75, window: 4,
			outcomes: []error{errFailed, errFailed, errFailed},
			want:     true,
		},
		"two of four": {
			rate: 0.75, window: 4,
			outcomes: []error{errFailed, errFailed},
			want:     false,
		},
		"all of two": {
			rate: 1, window: 2,
			outcomes: []error{errFailed, errFailed},
			want:     true,
		},
		"early failures are diluted": {
			rate: 1, window: 4,
			outcomes: []error{errFailed, errFailed, errFailed},
			want:     false,
		},
		"old outcomes are overwritten": {
			rate: 1, window: 2,
			outcomes: []error{errFailed, errFailed, nil},
			want:     false,
		},
		"successes are overwritten": {
			rate: 0.5, window: 2,
			outcomes: []error{nil, nil, errFailed},
			want:     true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d := newFailureDetector(&EjectionConfig{
				FailureRate:       tc.rate,
				FailureRateWindow: tc.window,
				ResetTimeout:      time.Second,
			}, time.Now)
			e := newEndpoint(resolver.Record{Name: "a", Port: 1})
			for _, err := range tc.outcomes {
				d.ReportOutcome(e, err)
			}
			assert.Equal(t, tc.want, d.IsEjected(e))
			d.Reset(e)
			assert.False(t, d.IsEjected(e))
		})
	}
}
