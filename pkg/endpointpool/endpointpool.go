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

// Package endpointpool implements a client side pool of service endpoints.
//
// A pool periodically resolves a host name into a list of endpoints and hands
// them out in round robin order. Optionally, endpoints that fail repeatedly
// are ejected from the rotation. An ejected endpoint is handed out once as a
// trial after the reset timeout elapsed; depending on the reported outcome of
// the trial it is reinstated or ejected again.
//
// Usage:
//
//	p, err := endpointpool.New(endpointpool.Config{
//		Hostname: "_api._tcp.example.com",
//		Interval: 30 * time.Second,
//		Resolver: r,
//		Ejection: &endpointpool.EjectionConfig{
//			MaxFailures:   3,
//			FailureWindow: 10 * time.Second,
//			ResetTimeout:  30 * time.Second,
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	lease, err := p.Endpoint()
//	if err != nil {
//		return err
//	}
//	err = call(lease.URL())
//	lease.Report(err)
package endpointpool

import (
	"errors"
	"sync"
	"time"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/metrics"
	"github.com/scionproto/srvpool/pkg/private/periodic"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/resolver"
)

var (
	// ErrInvalidConfig indicates that the pool configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoEndpoints indicates that no endpoint is available.
	ErrNoEndpoints = errors.New("no endpoint available")
	// ErrNoEligibleEndpoints indicates that the pool has members, but all of
	// them are ejected or on trial. It wraps ErrNoEndpoints.
	ErrNoEligibleEndpoints = serrors.WrapNoStack("all endpoints ejected", ErrNoEndpoints)
)

// Config configures a pool.
type Config struct {
	// Hostname is the name that is resolved. Required.
	Hostname string
	// Interval is the time between the completion of a resolution and the
	// start of the next one. Required.
	Interval time.Duration
	// Timeout bounds a single resolution. If zero, Interval is used.
	Timeout time.Duration
	// Resolver resolves Hostname. Required.
	Resolver resolver.Resolver
	// Ejection configures the failure detection. If nil, endpoints are
	// never ejected.
	Ejection *EjectionConfig
	// OnFirstResolution is called exactly once after the first resolution
	// attempt completed, with the resolution error or nil. If the pool is
	// closed during the first attempt, it receives the cancellation error. If
	// the pool is closed before the first attempt started, it is never
	// called. Optional.
	OnFirstResolution func(error)
	// Metrics are the metrics to report to. Optional.
	Metrics *Metrics
	// Logger is the logger to use. If nil, the root logger is used.
	Logger log.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return serrors.Wrap("hostname must be set", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return serrors.Wrap("interval must be positive", ErrInvalidConfig,
			"interval", c.Interval)
	}
	if c.Timeout < 0 {
		return serrors.Wrap("timeout must not be negative", ErrInvalidConfig,
			"timeout", c.Timeout)
	}
	if c.Resolver == nil {
		return serrors.Wrap("resolver must be set", ErrInvalidConfig)
	}
	if c.Ejection != nil {
		if err := c.Ejection.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Option customizes a pool.
type Option func(*Pool)

// WithClock sets the clock the pool uses for ejection timing and the age of
// the resolution. It defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		p.now = now
	}
}

// Status summarizes the state of a pool.
type Status struct {
	// Total is the number of endpoints in the pool.
	Total int
	// Unhealthy is the number of ejected or on trial endpoints.
	Unhealthy int
	// Age is the time since the last successful resolution, or since the
	// pool was created if no resolution succeeded yet.
	Age time.Duration
}

// Pool is a self-updating pool of endpoints. It is safe for concurrent use.
type Pool struct {
	hostname          string
	resolver          resolver.Resolver
	onFirstResolution func(error)
	metrics           *Metrics
	logger            log.Logger
	now               func() time.Time

	runner          *periodic.Runner
	firstResolution sync.Once

	mu          sync.Mutex
	rotation    rotation
	resolved    bool
	lastSuccess time.Time

	listenersMu  sync.Mutex
	listeners    []listener
	nextListener int
}

// New validates the configuration, creates the pool and starts resolving the
// host name. The first resolution is started immediately.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		hostname:          cfg.Hostname,
		resolver:          cfg.Resolver,
		onFirstResolution: cfg.OnFirstResolution,
		metrics:           cfg.Metrics.forHost(cfg.Hostname),
		logger:            cfg.Logger,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New("host", cfg.Hostname)
	}
	if cfg.Ejection != nil {
		p.rotation.detector = newFailureDetector(cfg.Ejection, p.now)
		p.rotation.resetTimeout = cfg.Ejection.ResetTimeout
	}
	p.lastSuccess = p.now()

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = cfg.Interval
	}
	p.runner = periodic.StartWithMetrics(resolutionTask{pool: p}, p.metrics.Periodic,
		cfg.Interval, timeout)
	return p, nil
}

// Endpoint returns the next endpoint in the rotation. The outcome of using
// the endpoint should be reported on the returned lease. If the pool has no
// members, ErrNoEndpoints is returned. If all members are ejected,
// ErrNoEligibleEndpoints is returned.
func (p *Pool) Endpoint() (*Lease, error) {
	p.mu.Lock()
	e, trial, err := p.rotation.next(p.now())
	if trial {
		p.updateGaugesLocked()
	}
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if trial {
		metrics.CounterInc(p.metrics.Trials)
		p.logger.Info("Endpoint on trial", "endpoint", e.URL())
	}
	return &Lease{endpoint: e, trial: trial, pool: p}, nil
}

func (p *Pool) report(l *Lease, err error) {
	p.mu.Lock()
	res := p.rotation.report(l.endpoint, l.trial, err, p.now())
	if res != outcomeNone {
		p.updateGaugesLocked()
	}
	p.mu.Unlock()

	switch res {
	case outcomeEjected:
		metrics.CounterInc(p.metrics.Ejections)
		p.logger.Info("Endpoint ejected", "endpoint", l.URL(), "err", err)
	case outcomeTrialFailed:
		metrics.CounterInc(p.metrics.Ejections)
		p.logger.Info("Endpoint trial failed", "endpoint", l.URL(), "err", err)
	case outcomeReinstated:
		metrics.CounterInc(p.metrics.Reinstatements)
		p.logger.Info("Endpoint reinstated", "endpoint", l.URL())
	}
}

// HasEndpoints returns whether the last successful resolution produced at
// least one endpoint. It returns false before the first successful
// resolution.
func (p *Pool) HasEndpoints() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved && len(p.rotation.members) > 0
}

// Status returns the current status of the pool.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	age := p.now().Sub(p.lastSuccess)
	if age < 0 {
		age = 0
	}
	return Status{
		Total:     len(p.rotation.members),
		Unhealthy: p.rotation.unhealthy(),
		Age:       age,
	}
}

// Endpoints returns a snapshot of all endpoints in rotation order.
func (p *Pool) Endpoints() []EndpointInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	infos := make([]EndpointInfo, 0, len(p.rotation.members))
	for _, e := range p.rotation.members {
		infos = append(infos, e.info())
	}
	return infos
}

// Hostname returns the resolved host name.
func (p *Pool) Hostname() string {
	return p.hostname
}

// TriggerResolution requests a resolution as soon as possible. The next
// periodic resolution follows one interval after the triggered one completed.
// It is a no-op after StopUpdating.
func (p *Pool) TriggerResolution() {
	p.runner.TriggerRun()
}

// StopUpdating stops the periodic resolution. A resolution that is in flight
// is still applied. StopUpdating does not block and can be called multiple
// times. The pool keeps serving the endpoints it knows.
func (p *Pool) StopUpdating() {
	p.runner.Stop()
}

// Close stops updating, cancels an in-flight resolution and waits until the
// resolution goroutine exited. Close must not be called from within
// OnFirstResolution or update error callbacks.
func (p *Pool) Close() {
	p.runner.Kill()
	<-p.runner.Done()
}

func (p *Pool) updateGaugesLocked() {
	metrics.GaugeSet(p.metrics.Endpoints, float64(len(p.rotation.members)))
	metrics.GaugeSet(p.metrics.Unhealthy, float64(p.rotation.unhealthy()))
}
