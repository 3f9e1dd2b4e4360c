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

// Package periodic runs a task repeatedly on a dedicated goroutine.
//
// The task runs once immediately when the runner is started. Every following
// run is scheduled one period after the previous run completed, including
// triggered runs, so there is never more than one run of the same task in
// flight.
package periodic

import (
	"context"
	"sync"
	"time"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/metrics"
)

// Event types reported through Metrics.Events.
const (
	EventStop    = "stop"
	EventKill    = "kill"
	EventTrigger = "triggered"
)

// A Task that has to be periodically executed.
type Task interface {
	// Run executes the task once, it should return within the context's timeout.
	Run(context.Context)
	// Name returns the task's name for use in metrics and logs.
	Name() string
}

// Metrics contains the metrics exported by a Runner. All fields are optional.
type Metrics struct {
	Events    func(string) metrics.Counter
	Period    metrics.Gauge
	Runtime   metrics.Gauge
	StartTime metrics.Gauge
}

func (m *Metrics) event(e string) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(e))
}

// Runner runs a task periodically.
type Runner struct {
	task    Task
	period  time.Duration
	timeout time.Duration
	metrics *Metrics

	ctx     context.Context
	cancelF context.CancelFunc

	stop         chan struct{}
	stopOnce     sync.Once
	killOnce     sync.Once
	trigger      chan struct{}
	loopFinished chan struct{}
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. A non-positive
// timeout means the task context is only canceled by Kill.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is identical to Start but allows the caller to specify the
// metrics to report on.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	r := &Runner{
		task:         task,
		period:       period,
		timeout:      timeout,
		metrics:      m,
		ctx:          ctx,
		cancelF:      cancelF,
		stop:         make(chan struct{}),
		trigger:      make(chan struct{}, 1),
		loopFinished: make(chan struct{}),
	}
	if m != nil {
		metrics.GaugeSet(m.Period, period.Seconds())
	}
	go func() {
		defer log.HandlePanic()
		r.runLoop()
	}()
	return r
}

// Stop stops the periodic execution of the Runner. A run that is currently in
// progress is not interrupted. Stop does not block and can be called multiple
// times, also from within the task itself. Use Done to wait for the runner to
// exit.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.metrics.event(EventStop)
		close(r.stop)
	})
}

// Kill is like Stop but it also cancels the context of the currently running
// task.
func (r *Runner) Kill() {
	r.killOnce.Do(func() {
		r.metrics.event(EventKill)
		r.stopOnce.Do(func() { close(r.stop) })
		r.cancelF()
	})
}

// Done returns a channel that is closed once the runner goroutine exited.
func (r *Runner) Done() <-chan struct{} {
	return r.loopFinished
}

// TriggerRun triggers the task to run as soon as possible. The next periodic
// run is scheduled one period after the triggered run completed. Triggers that
// arrive while a triggered run is still pending are coalesced into that run.
// The method never blocks; after Stop it is a no-op.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
		return
	default:
	}
	select {
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	default:
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()

	r.onTick()
	timer := time.NewTimer(r.period)
	defer timer.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-timer.C:
			r.onTick()
			timer.Reset(r.period)
		case <-r.trigger:
			timer.Stop()
			r.onTick()
			timer.Reset(r.period)
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that stop case is evaluated first, so that when we stop and
	// both channels are ready we always go into stop first.
	case <-r.stop:
		return
	default:
	}
	ctx, cancelF := r.ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancelF = context.WithTimeout(r.ctx, r.timeout)
	}
	defer cancelF()
	start := time.Now()
	if r.metrics != nil {
		metrics.GaugeSet(r.metrics.StartTime, float64(start.Unix()))
	}
	r.task.Run(ctx)
	if r.metrics != nil {
		metrics.GaugeSet(r.metrics.Runtime, time.Since(start).Seconds())
	}
}
