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

//go:build linux

package processmetrics

import (
	"os"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/private/serrors"
)

type schedStats struct {
	running   uint64
	runnable  uint64
	preempted uint64
}

// collector reads /proc/<pid>/task/*/{schedstat,status} on every scrape.
type collector struct {
	pid int

	mu   sync.Mutex
	last schedStats
}

func newCollector(pid int) (*collector, error) {
	c := &collector{pid: pid}
	if _, err := c.update(); err != nil {
		return nil, err
	}
	return c, nil
}

// update sums the statistics of all threads. Threads that disappear while
// reading are skipped. The counters never go backwards, if a sum is smaller
// than the last one, the last one is kept.
func (c *collector) update() (schedStats, error) {
	threads, err := procfs.AllThreads(c.pid)
	if err != nil {
		return schedStats{}, serrors.Wrap("listing threads", err, "pid", c.pid)
	}
	var s schedStats
	for _, t := range threads {
		sched, err := t.Schedstat()
		if err != nil {
			continue
		}
		s.running += sched.RunningNanoseconds
		s.runnable += sched.WaitingNanoseconds
		status, err := t.NewStatus()
		if err != nil {
			continue
		}
		s.preempted += status.NonVoluntaryCtxtSwitches
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last.running = max(c.last.running, s.running)
	c.last.runnable = max(c.last.runnable, s.runnable)
	c.last.preempted = max(c.last.preempted, s.preempted)
	return c.last, nil
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.update()
	if err != nil {
		log.Debug("Reading process statistics failed", "err", err)
	}
	ch <- prometheus.MustNewConstMetric(runningTime, prometheus.CounterValue,
		float64(s.running)/1e9)
	ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue,
		float64(s.runnable)/1e9)
	ch <- prometheus.MustNewConstMetric(preemptions, prometheus.CounterValue,
		float64(s.preempted))
	ch <- prometheus.MustNewConstMetric(goCores, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
}

// Register registers the process statistics collector with reg. It fails if
// /proc cannot be read. Ignoring the error only means that the metrics are
// missing.
func Register(reg prometheus.Registerer) error {
	c, err := newCollector(os.Getpid())
	if err != nil {
		return serrors.Wrap("initializing process metrics", err)
	}
	if err := reg.Register(c); err != nil {
		return serrors.Wrap("registering process metrics", err)
	}
	return nil
}
