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
	"time"

	"github.com/scionproto/srvpool/pkg/private/serrors"
)

// EjectionConfig configures the failure detection. Exactly one of the two
// pairs {MaxFailures, FailureWindow} and {FailureRate, FailureRateWindow}
// must be set, together with ResetTimeout.
type EjectionConfig struct {
	// MaxFailures is the number of failures within FailureWindow that eject
	// an endpoint.
	MaxFailures int
	// FailureWindow is the trailing time window in which failures are
	// counted.
	FailureWindow time.Duration
	// FailureRate is the fraction of failed outcomes in the last
	// FailureRateWindow outcomes that ejects an endpoint. It must be in
	// (0, 1].
	FailureRate float64
	// FailureRateWindow is the number of outcomes the failure rate is
	// computed over.
	FailureRateWindow int
	// ResetTimeout is the time after an ejection after which the endpoint is
	// handed out once as a trial.
	ResetTimeout time.Duration
}

// Validate checks that the configuration has exactly one complete shape.
func (c *EjectionConfig) Validate() error {
	countSet := c.MaxFailures != 0 || c.FailureWindow != 0
	rateSet := c.FailureRate != 0 || c.FailureRateWindow != 0
	switch {
	case countSet && rateSet:
		return serrors.Wrap("count and rate based ejection are mutually exclusive",
			ErrInvalidConfig)
	case !countSet && !rateSet:
		return serrors.Wrap("ejection requires either max failures and failure window "+
			"or failure rate and failure rate window", ErrInvalidConfig)
	case countSet && (c.MaxFailures <= 0 || c.FailureWindow <= 0):
		return serrors.Wrap("max failures and failure window must both be positive",
			ErrInvalidConfig, "max_failures", c.MaxFailures, "failure_window", c.FailureWindow)
	case rateSet && (!(c.FailureRate > 0 && c.FailureRate <= 1) || c.FailureRateWindow <= 0):
		return serrors.Wrap("failure rate must be in (0, 1] and failure rate window positive",
			ErrInvalidConfig, "failure_rate", c.FailureRate,
			"failure_rate_window", c.FailureRateWindow)
	}
	if c.ResetTimeout <= 0 {
		return serrors.Wrap("reset timeout must be positive", ErrInvalidConfig,
			"reset_timeout", c.ResetTimeout)
	}
	return nil
}

// FailureDetector decides from the reported outcomes whether an endpoint
// must be ejected. Implementations keep their per endpoint state on the
// endpoint itself and are only called while holding the pool lock.
type FailureDetector interface {
	// ReportOutcome records the outcome of one use of the endpoint. A nil
	// error is a success.
	ReportOutcome(e *Endpoint, err error)
	// IsEjected returns whether the recorded outcomes require ejecting the
	// endpoint.
	IsEjected(e *Endpoint) bool
	// Reset clears the recorded outcomes of the endpoint.
	Reset(e *Endpoint)
}

// newFailureDetector returns the detector for the validated configuration.
func newFailureDetector(c *EjectionConfig, now func() time.Time) FailureDetector {
	if c.MaxFailures > 0 {
		return &countWindowDetector{
			maxFailures: c.MaxFailures,
			window:      c.FailureWindow,
			now:         now,
		}
	}
	return &rateWindowDetector{
		rate:   c.FailureRate,
		window: c.FailureRateWindow,
	}
}

// countWindowDetector ejects an endpoint once it failed maxFailures times
// within the trailing window.
type countWindowDetector struct {
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

type failureHistory struct {
	failures []time.Time
}

func (d *countWindowDetector) history(e *Endpoint) *failureHistory {
	h, ok := e.detectorState.(*failureHistory)
	if !ok {
		h = &failureHistory{}
		e.detectorState = h
	}
	return h
}

func (d *countWindowDetector) ReportOutcome(e *Endpoint, err error) {
	h := d.history(e)
	if err == nil {
		h.failures = h.failures[:0]
		return
	}
	now := d.now()
	cutoff := now.Add(-d.window)
	kept := h.failures[:0]
	for _, ts := range h.failures {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	h.failures = append(kept, now)
}

func (d *countWindowDetector) IsEjected(e *Endpoint) bool {
	return len(d.history(e).failures) >= d.maxFailures
}

func (d *countWindowDetector) Reset(e *Endpoint) {
	e.detectorState = nil
}

// rateWindowDetector ejects an endpoint once the fraction of failures in the
// last window outcomes reaches rate. The outcome ring starts out filled with
// successes, so the denominator is always the full window.
type rateWindowDetector struct {
	rate   float64
	window int
}

type outcomeRing struct {
	failed   []bool
	next     int
	failures int
}

func (d *rateWindowDetector) ring(e *Endpoint) *outcomeRing {
	r, ok := e.detectorState.(*outcomeRing)
	if !ok {
		r = &outcomeRing{failed: make([]bool, d.window)}
		e.detectorState = r
	}
	return r
}

func (d *rateWindowDetector) ReportOutcome(e *Endpoint, err error) {
	r := d.ring(e)
	failed := err != nil
	if r.failed[r.next] {
		r.failures--
	}
	if failed {
		r.failures++
	}
	r.failed[r.next] = failed
	r.next = (r.next + 1) % len(r.failed)
}

func (d *rateWindowDetector) IsEjected(e *Endpoint) bool {
	r := d.ring(e)
	return float64(r.failures)/float64(len(r.failed)) >= d.rate
}

func (d *rateWindowDetector) Reset(e *Endpoint) {
	e.detectorState = nil
}
