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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/srvpool/pkg/resolver"
)

func records(names ...string) []resolver.Record {
	recs := make([]resolver.Record, 0, len(names))
	for _, n := range names {
		recs = append(recs, resolver.Record{Name: n, Port: 80})
	}
	return recs
}

func urls(members []*Endpoint) []string {
	var res []string
	for _, e := range members {
		res = append(res, e.URL())
	}
	return res
}

func mustNext(t *testing.T, r *rotation, now time.Time) (*Endpoint, bool) {
	t.Helper()
	e, trial, err := r.next(now)
	require.NoError(t, err)
	return e, trial
}

func TestRotationMerge(t *testing.T) {
	var r rotation
	res := r.merge(records("a", "b", "c"))
	assert.Equal(t, mergeResult{added: 3}, res)
	a, b, c := r.members[0], r.members[1], r.members[2]

	res = r.merge(records("d", "c", "a"))
	assert.Equal(t, mergeResult{added: 1, dropped: 1}, res)
	assert.Equal(t, []string{"d:80", "c:80", "a:80"}, urls(r.members))
	assert.Same(t, c, r.members[1])
	assert.Same(t, a, r.members[2])
	assert.False(t, r.contains(b))

	t.Run("same name different port is a different endpoint", func(t *testing.T) {
		var r rotation
		r.merge([]resolver.Record{{Name: "a", Port: 1}})
		old := r.members[0]
		r.merge([]resolver.Record{{Name: "a", Port: 2}})
		assert.NotSame(t, old, r.members[0])
	})
	t.Run("duplicates collapse", func(t *testing.T) {
		var r rotation
		r.merge(records("a", "b", "a"))
		assert.Equal(t, []string{"a:80", "b:80"}, urls(r.members))
	})
	t.Run("empty result drops everything", func(t *testing.T) {
		var r rotation
		r.merge(records("a"))
		r.merge(nil)
		assert.Empty(t, r.members)
		_, _, err := r.next(time.Now())
		assert.ErrorIs(t, err, ErrNoEndpoints)
	})
}

func TestRotationMergeKeepsHealth(t *testing.T) {
	now := time.Unix(1000, 0)
	r := rotation{
		detector: newFailureDetector(&EjectionConfig{
			MaxFailures: 1, FailureWindow: time.Minute, ResetTimeout: time.Minute,
		}, func() time.Time { return now }),
		resetTimeout: time.Minute,
	}
	r.merge(records("a", "b"))
	a := r.members[0]
	assert.Equal(t, outcomeEjected, r.report(a, false, errFailed, now))

	r.merge(records("b", "a"))
	assert.Same(t, a, r.members[1])
	assert.Equal(t, Ejected, a.health)
	assert.Equal(t, 1, r.unhealthy())

	// Ejected endpoints are dropped as well.
	r.merge(records("b"))
	assert.False(t, r.contains(a))
	assert.Equal(t, 0, r.unhealthy())
	// A late report for the dropped endpoint is ignored.
	assert.Equal(t, outcomeNone, r.report(a, false, errFailed, now))
}

func TestRotationRoundRobin(t *testing.T) {
	var r rotation
	r.merge(records("a", "b", "c"))
	now := time.Now()
	var got []string
	for i := 0; i < 7; i++ {
		e, trial := mustNext(t, &r, now)
		assert.False(t, trial)
		got = append(got, e.URL())
	}
	assert.Equal(t, []string{"a:80", "b:80", "c:80", "a:80", "b:80", "c:80", "a:80"}, got)

	// The cursor continues across a merge with the same members.
	r.merge(records("a", "b", "c"))
	e, _ := mustNext(t, &r, now)
	assert.Equal(t, "b:80", e.URL())

	// The cursor wraps when the pool shrinks.
	require.Equal(t, 2, r.cursor)
	r.merge(records("a", "b"))
	assert.Equal(t, 0, r.cursor)
	e, _ = mustNext(t, &r, now)
	assert.Equal(t, "a:80", e.URL())
}

func TestRotationTrial(t *testing.T) {
	start := time.Unix(1000, 0)
	r := rotation{
		detector: newFailureDetector(&EjectionConfig{
			MaxFailures: 1, FailureWindow: time.Minute, ResetTimeout: 10 * time.Second,
		}, func() time.Time { return start }),
		resetTimeout: 10 * time.Second,
	}
	r.merge(records("a"))
	a := r.members[0]
	require.Equal(t, outcomeEjected, r.report(a, false, errFailed, start))

	_, _, err := r.next(start.Add(9 * time.Second))
	assert.ErrorIs(t, err, ErrNoEligibleEndpoints)
	assert.ErrorIs(t, err, ErrNoEndpoints)

	e, trial := mustNext(t, &r, start.Add(10*time.Second))
	assert.Same(t, a, e)
	assert.True(t, trial)
	assert.Equal(t, OnTrial, a.health)

	// The trial is exclusive.
	_, _, err = r.next(start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNoEligibleEndpoints)
	// A regular report does not decide the trial.
	assert.Equal(t, outcomeNone, r.report(a, false, nil, start.Add(time.Hour)))

	// A failed trial restarts the reset timer.
	failedAt := start.Add(time.Hour)
	assert.Equal(t, outcomeTrialFailed, r.report(a, true, errFailed, failedAt))
	assert.Equal(t, Ejected, a.health)
	_, _, err = r.next(failedAt.Add(9 * time.Second))
	assert.ErrorIs(t, err, ErrNoEligibleEndpoints)

	_, trial = mustNext(t, &r, failedAt.Add(10*time.Second))
	assert.True(t, trial)
	assert.Equal(t, outcomeReinstated, r.report(a, true, nil, failedAt.Add(10*time.Second)))
	assert.Equal(t, Healthy, a.health)
	assert.Nil(t, a.detectorState)
	_, trial = mustNext(t, &r, failedAt.Add(10*time.Second))
	assert.False(t, trial)
}

func TestRotationWithoutDetector(t *testing.T) {
	var r rotation
	r.merge(records("a"))
	assert.Equal(t, outcomeNone, r.report(r.members[0], false, errFailed, time.Now()))
	assert.Equal(t, Healthy, r.members[0].health)
}
