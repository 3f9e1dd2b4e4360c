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
	"context"
	"errors"
	"time"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/metrics"
	"github.com/scionproto/srvpool/pkg/private/prom"
	"github.com/scionproto/srvpool/pkg/private/tracing"
	"github.com/scionproto/srvpool/pkg/resolver"
)

// UpdateError is emitted for every failed resolution.
type UpdateError struct {
	// Err is the resolution error.
	Err error
	// Age is the time since the last successful resolution, or since the
	// pool was created if no resolution succeeded yet.
	Age time.Duration
}

func (e UpdateError) Error() string {
	return e.Err.Error()
}

func (e UpdateError) Unwrap() error {
	return e.Err
}

// resolutionTask is the periodic task that resolves the host name and feeds
// the result to the pool.
type resolutionTask struct {
	pool *Pool
}

func (t resolutionTask) Name() string {
	return "srvpool_resolution"
}

func (t resolutionTask) Run(ctx context.Context) {
	t.pool.resolve(ctx)
}

func (p *Pool) resolve(ctx context.Context) {
	span, ctx := tracing.CtxWith(ctx, "srvpool.resolution")
	defer span.Finish()
	span.SetTag("host", p.hostname)
	ctx = log.CtxWith(ctx, p.logger)

	start := time.Now()
	records, err := p.resolver.Resolve(ctx, p.hostname)
	result := prom.ErrLabel(err)
	metrics.HistogramObserve(p.metrics.ResolutionDuration, time.Since(start).Seconds())
	metrics.CounterInc(metrics.CounterWith(p.metrics.Resolutions, prom.LabelResult, result))
	tracing.ResultLabel(span, result)
	tracing.Error(span, err)

	if err != nil {
		p.resolutionFailed(ctx, err)
	} else {
		p.resolutionSucceeded(records)
	}
	p.firstResolution.Do(func() {
		if p.onFirstResolution != nil {
			p.onFirstResolution(err)
		}
	})
}

func (p *Pool) resolutionSucceeded(records []resolver.Record) {
	p.mu.Lock()
	res := p.rotation.merge(records)
	p.lastSuccess = p.now()
	p.resolved = true
	p.updateGaugesLocked()
	total := len(p.rotation.members)
	p.mu.Unlock()

	p.logger.Debug("Resolved endpoints", "total", total,
		"added", res.added, "dropped", res.dropped)
}

func (p *Pool) resolutionFailed(ctx context.Context, err error) {
	// The context of the resolution is only canceled when the pool is closed.
	if errors.Is(ctx.Err(), context.Canceled) {
		p.logger.Debug("Resolution canceled", "err", err)
		return
	}
	p.mu.Lock()
	age := p.now().Sub(p.lastSuccess)
	p.mu.Unlock()

	p.logger.Error("Resolution failed", "err", err, "age", age)
	p.emitUpdateError(UpdateError{Err: err, Age: age})
}

// OnUpdateError registers fn to be called for every failed resolution. The
// callbacks are invoked on the resolution goroutine, in registration order.
// The returned function removes the registration.
func (p *Pool) OnUpdateError(fn func(UpdateError)) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	id := p.nextListener
	p.nextListener++
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	return func() {
		p.listenersMu.Lock()
		defer p.listenersMu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

type listener struct {
	id int
	fn func(UpdateError)
}

func (p *Pool) emitUpdateError(ue UpdateError) {
	p.listenersMu.Lock()
	listeners := append([]listener(nil), p.listeners...)
	p.listenersMu.Unlock()
	for _, l := range listeners {
		l.fn(ue)
	}
}
