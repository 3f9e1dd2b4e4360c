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

// Package resolver defines how host names are turned into lists of service
// records. The endpoint pool only depends on the Resolver interface; concrete
// implementations live in this package and its sub-packages.
package resolver

import (
	"context"
	"fmt"
	"slices"
)

// Record is a single resolved service target.
type Record struct {
	// Name is the target host name or address.
	Name string `json:"name" yaml:"name"`
	// Port is the target port.
	Port int `json:"port" yaml:"port"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.Port)
}

// Resolver resolves a host name into an ordered list of records.
type Resolver interface {
	// Resolve returns the records for hostname. The order of the returned
	// records is significant and is preserved by the callers. An empty list
	// with a nil error is a valid answer.
	Resolve(ctx context.Context, hostname string) ([]Record, error)
}

// Func wraps a function to implement the Resolver interface.
type Func func(ctx context.Context, hostname string) ([]Record, error)

func (f Func) Resolve(ctx context.Context, hostname string) ([]Record, error) {
	return f(ctx, hostname)
}

// Static answers every query with the same fixed list of records.
type Static []Record

func (s Static) Resolve(ctx context.Context, _ string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}
