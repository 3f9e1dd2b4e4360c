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

package metrics

import (
	"strings"
	"sync"
)

// node is the shared implementation of the test metrics. Every distinct label
// set gets its own child node.
type node struct {
	mtx      sync.Mutex
	v        float64
	children map[string]*node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func (n *node) child(labelValues []string) *node {
	if len(labelValues) == 0 {
		return n
	}
	key := strings.Join(labelValues, "\x00")
	n.mtx.Lock()
	defer n.mtx.Unlock()
	c, ok := n.children[key]
	if !ok {
		c = newNode()
		n.children[key] = c
	}
	return c
}

func (n *node) add(delta float64, canBeNegative bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	n.v += delta
}

func (n *node) set(v float64) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.v = v
}

func (n *node) value() float64 {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.v
}

// TestCounter implements a counter for use in tests.
type TestCounter struct {
	*node
}

// NewTestCounter creates a new counter for use in tests.
func NewTestCounter() *TestCounter {
	return &TestCounter{node: newNode()}
}

// With returns the child counter for the given labels. Calling With twice
// with the same labels returns counters sharing the same value.
func (c *TestCounter) With(labelValues ...string) Counter {
	return &TestCounter{node: c.child(labelValues)}
}

// Add increases the value of the counter by delta. It panics if delta is
// negative.
func (c *TestCounter) Add(delta float64) {
	c.add(delta, false)
}

// CounterValue extracts the value out of a TestCounter. If the argument is not
// a *TestCounter, CounterValue will panic.
func CounterValue(c Counter) float64 {
	return c.(*TestCounter).value()
}

// TestGauge implements a gauge for use in tests.
type TestGauge struct {
	*node
}

// NewTestGauge creates a new gauge for use in tests.
func NewTestGauge() *TestGauge {
	return &TestGauge{node: newNode()}
}

// With returns the child gauge for the given labels.
func (g *TestGauge) With(labelValues ...string) Gauge {
	return &TestGauge{node: g.child(labelValues)}
}

// Set sets the value of the gauge.
func (g *TestGauge) Set(v float64) {
	g.set(v)
}

// Add changes the value of the gauge by delta.
func (g *TestGauge) Add(delta float64) {
	g.add(delta, true)
}

// GaugeValue extracts the value out of a TestGauge. If the argument is not a
// *TestGauge, GaugeValue will panic.
func GaugeValue(g Gauge) float64 {
	return g.(*TestGauge).value()
}

// TestHistogram implements a histogram for use in tests. It records the sum
// and the count of the observations.
type TestHistogram struct {
	sum   *node
	count *node
}

// NewTestHistogram creates a new histogram for use in tests.
func NewTestHistogram() *TestHistogram {
	return &TestHistogram{sum: newNode(), count: newNode()}
}

// With returns the child histogram for the given labels.
func (h *TestHistogram) With(labelValues ...string) Histogram {
	return &TestHistogram{sum: h.sum.child(labelValues), count: h.count.child(labelValues)}
}

// Observe records value.
func (h *TestHistogram) Observe(value float64) {
	h.sum.add(value, true)
	h.count.add(1, false)
}

// HistogramCount returns the number of observations of a TestHistogram.
func HistogramCount(h Histogram) int {
	return int(h.(*TestHistogram).count.value())
}
