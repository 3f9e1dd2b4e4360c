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

// Package prom contains some utility functions for dealing with prometheus
// metrics.
package prom

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/srvpool/pkg/private/serrors"
)

// Common label names.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelEvent is the label for event types.
	LabelEvent = "event_type"
	// LabelHost is the label for the resolved host name.
	LabelHost = "host"
)

// Common result values.
const (
	// Success is no error.
	Success = "ok_success"
	// ErrNotClassified is an error that is not further classified.
	ErrNotClassified = "err_not_classified"
	// ErrTimeout is a timeout error.
	ErrTimeout = "err_timeout"
	// ErrCanceled is used when the operation was canceled.
	ErrCanceled = "err_canceled"
	// ErrNetwork is used for errors when sending something over the network.
	ErrNetwork = "err_network"
	// ErrNotFound is used for errors where a resource is not found.
	ErrNotFound = "err_not_found"
)

// DefaultLatencyBuckets 10ms, 20ms, 40ms, ... 5.12s, 10.24s.
var DefaultLatencyBuckets = []float64{0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64,
	1.28, 2.56, 5.12, 10.24}

// ErrLabel classifies err into one of the common result values. A nil error
// is classified as Success.
func ErrLabel(err error) string {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	case errors.Is(err, context.DeadlineExceeded), serrors.IsTimeout(err):
		return ErrTimeout
	default:
		return ErrNotClassified
	}
}

// SafeRegister registers c with the default registry and returns the
// registered collector. If c was already registered the already registered
// collector is returned. In case of any other error this method panics.
func SafeRegister(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
