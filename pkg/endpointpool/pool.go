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
	"time"

	"github.com/scionproto/srvpool/pkg/resolver"
)

// rotation is the ordered set of endpoints and the round robin cursor. It is
// not safe for concurrent use.
type rotation struct {
	members []*Endpoint
	byKey   map[key]*Endpoint
	cursor  int

	// detector is nil if ejection is disabled.
	detector     FailureDetector
	resetTimeout time.Duration
}

// mergeResult summarizes the membership change of a merge.
type mergeResult struct {
	added   int
	dropped int
}

// merge replaces the members with the endpoints of records. Endpoints that
// are already known keep their identity and health state, all others are
// created healthy. Known endpoints that are not listed anymore are dropped,
// regardless of their health. Duplicate records collapse onto their first
// occurrence.
func (r *rotation) merge(records []resolver.Record) mergeResult {
	var res mergeResult
	members := make([]*Endpoint, 0, len(records))
	byKey := make(map[key]*Endpoint, len(records))
	for _, rec := range records {
		k := recordKey(rec)
		if _, ok := byKey[k]; ok {
			continue
		}
		e, ok := r.byKey[k]
		if !ok {
			e = newEndpoint(rec)
			res.added++
		}
		byKey[k] = e
		members = append(members, e)
	}
	for k := range r.byKey {
		if _, ok := byKey[k]; !ok {
			res.dropped++
		}
	}
	r.members = members
	r.byKey = byKey
	if r.cursor >= len(r.members) {
		r.cursor = 0
	}
	return res
}

// next returns the next eligible endpoint, starting at the cursor. The second
// return value indicates that the endpoint is handed out as a trial.
func (r *rotation) next(now time.Time) (*Endpoint, bool, error) {
	n := len(r.members)
	if n == 0 {
		return nil, false, ErrNoEndpoints
	}
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		e := r.members[idx]
		switch e.health {
		case Healthy:
			r.cursor = (idx + 1) % n
			return e, false, nil
		case Ejected:
			if r.detector == nil || now.Sub(e.ejectedAt) < r.resetTimeout {
				continue
			}
			e.health = OnTrial
			r.cursor = (idx + 1) % n
			return e, true, nil
		}
	}
	return nil, false, ErrNoEligibleEndpoints
}

// contains returns whether e is the current member for its identity.
func (r *rotation) contains(e *Endpoint) bool {
	return r.byKey[e.key()] == e
}

// unhealthy returns the number of members that are ejected or on trial.
func (r *rotation) unhealthy() int {
	cnt := 0
	for _, e := range r.members {
		if e.health != Healthy {
			cnt++
		}
	}
	return cnt
}

// outcome is the health transition caused by a report.
type outcome int

const (
	outcomeNone outcome = iota
	outcomeEjected
	outcomeReinstated
	outcomeTrialFailed
)

// report applies the reported outcome of a dispense of e. Reports for
// endpoints that are no longer members are ignored, as are regular reports
// for endpoints that are not healthy anymore.
func (r *rotation) report(e *Endpoint, trial bool, err error, now time.Time) outcome {
	if r.detector == nil || !r.contains(e) {
		return outcomeNone
	}
	if trial {
		if e.health != OnTrial {
			return outcomeNone
		}
		if err != nil {
			e.health = Ejected
			e.ejectedAt = now
			return outcomeTrialFailed
		}
		e.health = Healthy
		r.detector.Reset(e)
		return outcomeReinstated
	}
	if e.health != Healthy {
		return outcomeNone
	}
	r.detector.ReportOutcome(e, err)
	if !r.detector.IsEjected(e) {
		return outcomeNone
	}
	e.health = Ejected
	e.ejectedAt = now
	return outcomeEjected
}
