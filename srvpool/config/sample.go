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

package config

const apiSample = `
# The address the management API is served on. If empty, the API is
# disabled. (default 127.0.0.1:30480)
addr = "127.0.0.1:30480"
`

const poolSample = `
# The host name that is resolved. Names of the form _service._proto.domain
# are resolved with SRV queries. (required)
hostname = "_api._tcp.example.com"

# The time between the completion of a resolution and the start of the next
# one. (default 30s)
interval = "30s"

# The maximum duration of a single resolution. If zero, the interval is used.
# (default 0s)
timeout = "0s"
`

const ejectionSample = `
# Endpoints that fail repeatedly are ejected from the rotation. Exactly one
# of the two detectors can be configured. If none is configured, endpoints
# are never ejected.
#
# Count window: eject after max_failures failures within failure_window.
# max_failures = 3
# failure_window = "10s"
#
# Rate window: eject if at least failure_rate of the last
# failure_rate_window outcomes failed. The rate is in (0, 1].
# failure_rate = 0.5
# failure_rate_window = 20
#
# The time after which an ejected endpoint is handed out once as a trial.
# Required if a detector is configured.
# reset_timeout = "30s"
`

const resolverSample = `
# The resolver mode, either "dns" or "static". (default dns)
mode = "dns"

# The name servers in host:port form. If empty, the name servers in
# resolv_conf are used. (default [])
servers = []

# The resolver configuration the name servers are read from.
# (default /etc/resolv.conf)
resolv_conf = "/etc/resolv.conf"

# The port used for names without SRV records. The host name is then
# resolved with A and AAAA queries. Zero disables the fallback. (default 0)
default_port = 0

# The time the last good answer is served while the name servers fail.
# Zero disables the cache. (default 0s)
cache_ttl = "0s"

# The endpoints in host:port form used in the static mode. (default [])
static = []
`
