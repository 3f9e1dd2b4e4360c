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

package periodic

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/srvpool/pkg/metrics"
	"github.com/scionproto/srvpool/pkg/private/prom"
)

// NewMetrics creates prometheus backed metrics for the task with the given
// name. The metric names are prefixed with "periodic_task_" and the task name
// is used as a constant label.
func NewMetrics(f metrics.Factory, taskName string) *Metrics {
	constLabels := prometheus.Labels{"task": taskName}
	events := f.NewCounter(prometheus.CounterOpts{
		Name:        "periodic_task_events_total",
		Help:        "Total number of events of the periodic task.",
		ConstLabels: constLabels,
	}, []string{prom.LabelEvent})
	return &Metrics{
		Events: func(e string) metrics.Counter {
			return events.With(prom.LabelEvent, e)
		},
		Period: f.NewGauge(prometheus.GaugeOpts{
			Name:        "periodic_task_period_seconds",
			Help:        "The period of the task.",
			ConstLabels: constLabels,
		}, nil),
		Runtime: f.NewGauge(prometheus.GaugeOpts{
			Name:        "periodic_task_runtime_seconds",
			Help:        "Duration of the last run of the task.",
			ConstLabels: constLabels,
		}, nil),
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Name:        "periodic_task_start_timestamp_seconds",
			Help:        "Start time of the last run of the task as unix timestamp.",
			ConstLabels: constLabels,
		}, nil),
	}
}
