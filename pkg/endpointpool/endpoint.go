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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/resolver"
)

// Health is the health state of an endpoint.
type Health int

const (
	// Healthy endpoints take part in the rotation.
	Healthy Health = iota
	// Ejected endpoints are skipped until their reset timeout elapsed.
	Ejected
	// OnTrial endpoints have been handed out once after their reset timeout
	// and wait for the outcome of that trial.
	OnTrial
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Ejected:
		return "ejected"
	case OnTrial:
		return "on_trial"
	default:
		return fmt.Sprintf("unknown(%d)", int(h))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Health) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*h = Healthy
	case "ejected":
		*h = Ejected
	case "on_trial":
		*h = OnTrial
	default:
		return serrors.New("unknown health", "health", string(text))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h Health) MarshalYAML() (any, error) {
	return h.String(), nil
}

type key struct {
	name string
	port int
}

func recordKey(r resolver.Record) key {
	return key{name: r.Name, port: r.Port}
}

// Endpoint is a resolved network target. The same *Endpoint is kept for as
// long as consecutive resolutions list it. The health bookkeeping is owned by
// the pool and only modified while holding the pool lock.
type Endpoint struct {
	name string
	port int

	health    Health
	ejectedAt time.Time
	// detectorState is owned by the failure detector.
	detectorState any
}

func newEndpoint(r resolver.Record) *Endpoint {
	return &Endpoint{name: r.Name, port: r.Port, health: Healthy}
}

// Name returns the host name or address of the endpoint.
func (e *Endpoint) Name() string { return e.name }

// Port returns the port of the endpoint.
func (e *Endpoint) Port() int { return e.port }

// URL returns the endpoint as "name:port".
func (e *Endpoint) URL() string {
	return fmt.Sprintf("%s:%d", e.name, e.port)
}

func (e *Endpoint) String() string {
	return e.URL()
}

func (e *Endpoint) key() key {
	return key{name: e.name, port: e.port}
}

// EndpointInfo is a point in time snapshot of an endpoint.
type EndpointInfo struct {
	Name      string    `json:"name" yaml:"name"`
	Port      int       `json:"port" yaml:"port"`
	URL       string    `json:"url" yaml:"url"`
	Health    Health    `json:"health" yaml:"health"`
	EjectedAt time.Time `json:"ejected_at,omitzero" yaml:"ejected_at,omitempty"`
}

func (e *Endpoint) info() EndpointInfo {
	info := EndpointInfo{
		Name:   e.name,
		Port:   e.port,
		URL:    e.URL(),
		Health: e.health,
	}
	if e.health != Healthy {
		info.EjectedAt = e.ejectedAt
	}
	return info
}

// Lease is a single dispense of an endpoint. The outcome of using the
// endpoint is reported back through the lease exactly once; further reports
// are ignored.
type Lease struct {
	endpoint *Endpoint
	trial    bool
	pool     *Pool
	reported atomic.Bool
}

// Endpoint returns the leased endpoint.
func (l *Lease) Endpoint() *Endpoint { return l.endpoint }

// URL returns the URL of the leased endpoint.
func (l *Lease) URL() string { return l.endpoint.URL() }

// Trial indicates whether this lease is the trial dispense of a previously
// ejected endpoint.
func (l *Lease) Trial() bool { return l.trial }

// Report reports the outcome of using the endpoint. A nil error reports
// success. Only the first call has an effect. Reports for endpoints that
// have been dropped by a resolution in the meantime are ignored.
func (l *Lease) Report(err error) {
	if !l.reported.CompareAndSwap(false, true) {
		return
	}
	l.pool.report(l, err)
}
