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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/srvpool/pkg/metrics"
	"github.com/scionproto/srvpool/pkg/private/periodic"
	"github.com/scionproto/srvpool/pkg/private/prom"
)

// Metrics are the metrics exported by a pool. All fields are optional. The
// pool adds the host label to every metric.
type Metrics struct {
	// Resolutions counts resolutions by result.
	Resolutions metrics.Counter
	// ResolutionDuration observes the duration of resolutions in seconds.
	ResolutionDuration metrics.Histogram
	// Endpoints is the number of endpoints in the pool.
	Endpoints metrics.Gauge
	// Unhealthy is the number of ejected or on trial endpoints.
	Unhealthy metrics.Gauge
	// Ejections counts ejections, including failed trials.
	Ejections metrics.Counter
	// Trials counts trial dispenses.
	Trials metrics.Counter
	// Reinstatements counts successful trials.
	Reinstatements metrics.Counter
	// Periodic are the metrics of the resolution scheduler.
	Periodic *periodic.Metrics
}

// NewMetrics creates prometheus backed pool metrics.
func NewMetrics(f metrics.Factory) *Metrics {
	host := []string{prom.LabelHost}
	return &Metrics{
		Resolutions: f.NewCounter(prometheus.CounterOpts{
			Name: "srvpool_resolutions_total",
			Help: "Total number of host name resolutions.",
		}, []string{prom.LabelHost, prom.LabelResult}),
		ResolutionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "srvpool_resolution_duration_seconds",
			Help:    "Duration of host name resolutions.",
			Buckets: prom.DefaultLatencyBuckets,
		}, host),
		Endpoints: f.NewGauge(prometheus.GaugeOpts{
			Name: "srvpool_endpoints",
			Help: "Number of endpoints in the pool.",
		}, host),
		Unhealthy: f.NewGauge(prometheus.GaugeOpts{
			Name: "srvpool_endpoints_unhealthy",
			Help: "Number of ejected or on trial endpoints in the pool.",
		}, host),
		Ejections: f.NewCounter(prometheus.CounterOpts{
			Name: "srvpool_ejections_total",
			Help: "Total number of endpoint ejections.",
		}, host),
		Trials: f.NewCounter(prometheus.CounterOpts{
			Name: "srvpool_trials_total",
			Help: "Total number of trial dispenses of ejected endpoints.",
		}, host),
		Reinstatements: f.NewCounter(prometheus.CounterOpts{
			Name: "srvpool_reinstatements_total",
			Help: "Total number of endpoints reinstated after a successful trial.",
		}, host),
		Periodic: periodic.NewMetrics(f, "srvpool_resolution"),
	}
}

// forHost returns a copy of m with the host label applied.
func (m *Metrics) forHost(host string) *Metrics {
	if m == nil {
		return &Metrics{}
	}
	return &Metrics{
		Resolutions:        metrics.CounterWith(m.Resolutions, prom.LabelHost, host),
		ResolutionDuration: metrics.HistogramWith(m.ResolutionDuration, prom.LabelHost, host),
		Endpoints:          metrics.GaugeWith(m.Endpoints, prom.LabelHost, host),
		Unhealthy:          metrics.GaugeWith(m.Unhealthy, prom.LabelHost, host),
		Ejections:          metrics.CounterWith(m.Ejections, prom.LabelHost, host),
		Trials:             metrics.CounterWith(m.Trials, prom.LabelHost, host),
		Reinstatements:     metrics.CounterWith(m.Reinstatements, prom.LabelHost, host),
		Periodic:           m.Periodic,
	}
}
