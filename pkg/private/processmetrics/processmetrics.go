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

// Package processmetrics exports scheduler statistics of the process that the
// default prometheus process collector does not cover. Only Linux is
// supported, on other platforms Register is a no-op.
//
// The running and runnable times of all threads are summed up. The runnable
// time is the core time the process wanted but did not get. Together with
// go_sched_maxprocs_threads this allows to estimate the CPU time that was
// available to the process, e.g.:
//
//	go_sched_maxprocs_threads - rate(process_runnable_seconds_total[1m])
package processmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runningTime = prometheus.NewDesc(
		"process_running_seconds_total",
		"CPU time the process used (running state) since it started (all threads summed).",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"CPU time the process was denied (runnable state) since it started (all threads summed).",
		nil, nil,
	)
	preemptions = prometheus.NewDesc(
		"process_preempted_count_total",
		"Number of times the threads of the process were preempted since it started.",
		nil, nil,
	)
	goCores = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
)
