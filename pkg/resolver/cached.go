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

package resolver

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/scionproto/srvpool/pkg/log"
)

// Cached wraps a resolver and remembers the last successful answer per host
// name for a limited time. If the wrapped resolver fails while a remembered
// answer is still valid, the remembered answer is returned instead of the
// error.
type Cached struct {
	resolver Resolver
	cache    *cache.Cache
}

// NewCached creates a caching resolver. Answers are remembered for ttl.
func NewCached(r Resolver, ttl time.Duration) *Cached {
	return &Cached{
		resolver: r,
		// No janitor goroutine, expired entries are removed on every
		// successful resolution.
		cache: cache.New(ttl, 0),
	}
}

func (c *Cached) Resolve(ctx context.Context, hostname string) ([]Record, error) {
	records, err := c.resolver.Resolve(ctx, hostname)
	if err == nil {
		c.cache.DeleteExpired()
		c.cache.SetDefault(hostname, slices.Clone(records))
		return records, nil
	}
	cached, ok := c.cache.Get(hostname)
	if !ok {
		return nil, err
	}
	log.FromCtx(ctx).Debug("Resolution failed, serving cached answer",
		"host", hostname, "err", err)
	return slices.Clone(cached.([]Record)), nil
}

// Forget drops the remembered answer for hostname.
func (c *Cached) Forget(hostname string) {
	c.cache.Delete(hostname)
}
