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

package util

import (
	"regexp"
	"strconv"
	"time"

	"github.com/scionproto/srvpool/pkg/private/serrors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

var durationRegex = regexp.MustCompile(`^(\d+)(y|w|d|h|m|s|ms|us|µs|ns)$`)

var durationUnits = map[string]time.Duration{
	"y":  year,
	"w":  week,
	"d":  day,
	"h":  time.Hour,
	"m":  time.Minute,
	"s":  time.Second,
	"ms": time.Millisecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ns": time.Nanosecond,
}

// ParseDuration parses a duration of the form <integer><unit>. In addition to
// the units understood by time.ParseDuration, d (days), w (weeks) and y (365
// days) are supported. Only a single unit is allowed.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, serrors.New("invalid duration", "value", s)
	}
	n, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, serrors.Wrap("parsing duration quantity", err, "value", s)
	}
	return time.Duration(n) * durationUnits[matches[2]], nil
}

// FmtDuration formats d with the largest unit that represents it exactly.
func FmtDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	for _, u := range []struct {
		unit string
		dur  time.Duration
	}{
		{"y", year}, {"w", week}, {"d", day}, {"h", time.Hour}, {"m", time.Minute},
		{"s", time.Second}, {"ms", time.Millisecond}, {"us", time.Microsecond},
	} {
		if d%u.dur == 0 {
			return strconv.FormatInt(int64(d/u.dur), 10) + u.unit
		}
	}
	return strconv.FormatInt(int64(d), 10) + "ns"
}
