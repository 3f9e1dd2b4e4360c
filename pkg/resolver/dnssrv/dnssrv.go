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

// Package dnssrv implements a resolver that looks up DNS SRV records.
//
// The targets of the SRV answer are returned ordered by priority (ascending)
// and weight (descending). If the name has no SRV records and a default port
// is configured, the A and AAAA records of the name are returned with the
// default port instead.
package dnssrv

import (
	"context"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/resolver"
)

// DefaultResolvConf is the default location of the system resolver
// configuration.
const DefaultResolvConf = "/etc/resolv.conf"

// DefaultTimeout is the default timeout of a single DNS exchange.
const DefaultTimeout = 2 * time.Second

// EDNS0Size is the UDP payload size advertised in queries.
const EDNS0Size = 4096

var _ resolver.Resolver = (*Resolver)(nil)

// Resolver resolves host names with DNS SRV queries.
type Resolver struct {
	// Servers are the name servers in host:port form. They are tried in
	// order, the first one that answers wins.
	Servers []string
	// DefaultPort is used for the A/AAAA fallback. If it is 0, a name
	// without SRV records resolves to an empty list.
	DefaultPort int
	// Client is used for the exchanges. If nil, a UDP client with
	// DefaultTimeout is used. Truncated UDP responses are retried over TCP
	// with the same timeouts.
	Client *dns.Client
}

// ServersFromResolvConf reads the name servers from the resolv.conf file at
// path.
func ServersFromResolvConf(path string) ([]string, error) {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading resolver configuration", err, "path", path)
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	if len(servers) == 0 {
		return nil, serrors.New("no name servers configured", "path", path)
	}
	return servers, nil
}

// Resolve looks up the SRV records of hostname.
func (r *Resolver) Resolve(ctx context.Context, hostname string) ([]resolver.Record, error) {
	if len(r.Servers) == 0 {
		return nil, serrors.New("no name servers configured")
	}
	logger := log.FromCtx(ctx)
	name := dns.Fqdn(hostname)
	var errs serrors.List
	for _, server := range r.Servers {
		records, err := r.resolveWith(ctx, server, name)
		if err != nil {
			logger.Debug("Name server failed", "server", server, "host", hostname, "err", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return records, nil
	}
	return nil, serrors.Wrap("resolving SRV records", errs.ToError(), "host", hostname)
}

func (r *Resolver) resolveWith(
	ctx context.Context,
	server string,
	name string,
) ([]resolver.Record, error) {

	answer, err := r.exchange(ctx, server, name, dns.TypeSRV)
	if err != nil {
		return nil, err
	}
	var srvs []*dns.SRV
	for _, rr := range answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, srv)
		}
	}
	if len(srvs) > 0 {
		slices.SortStableFunc(srvs, compareSRV)
		records := make([]resolver.Record, 0, len(srvs))
		for _, srv := range srvs {
			records = append(records, resolver.Record{
				Name: strings.TrimSuffix(srv.Target, "."),
				Port: int(srv.Port),
			})
		}
		return records, nil
	}
	if r.DefaultPort == 0 {
		return []resolver.Record{}, nil
	}
	return r.resolveAddrs(ctx, server, name)
}

func (r *Resolver) resolveAddrs(
	ctx context.Context,
	server string,
	name string,
) ([]resolver.Record, error) {

	records := []resolver.Record{}
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answer, err := r.exchange(ctx, server, name, qtype)
		if err != nil {
			return nil, err
		}
		for _, rr := range answer {
			switch rr := rr.(type) {
			case *dns.A:
				records = append(records, resolver.Record{Name: rr.A.String(), Port: r.DefaultPort})
			case *dns.AAAA:
				records = append(records,
					resolver.Record{Name: rr.AAAA.String(), Port: r.DefaultPort})
			}
		}
	}
	return records, nil
}

// exchange sends a single query. A NXDOMAIN response is treated as an empty
// answer. A truncated UDP response is retried over TCP; a response that is
// still truncated is an error, since a partial answer would shrink the pool.
func (r *Resolver) exchange(
	ctx context.Context,
	server string,
	name string,
	qtype uint16,
) ([]dns.RR, error) {

	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(EDNS0Size, false)
	c := r.client()
	resp, _, err := c.ExchangeContext(ctx, msg, server)
	if err == nil && resp.Truncated && !isTCP(c.Net) {
		log.FromCtx(ctx).Debug("Truncated DNS response, retrying over TCP",
			"server", server, "qtype", dns.TypeToString[qtype])
		resp, _, err = tcpClient(c).ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, serrors.Wrap("exchanging DNS message", err,
			"server", server, "qtype", dns.TypeToString[qtype])
	}
	if resp.Truncated {
		return nil, serrors.New("truncated DNS response",
			"server", server, "qtype", dns.TypeToString[qtype])
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp.Answer, nil
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, serrors.New("unexpected DNS response code",
			"server", server, "qtype", dns.TypeToString[qtype],
			"rcode", dns.RcodeToString[resp.Rcode])
	}
}

func (r *Resolver) client() *dns.Client {
	if r.Client != nil {
		return r.Client
	}
	return &dns.Client{Timeout: DefaultTimeout}
}

func tcpClient(c *dns.Client) *dns.Client {
	return &dns.Client{
		Net:          "tcp",
		Timeout:      c.Timeout,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func isTCP(network string) bool {
	return strings.HasPrefix(network, "tcp")
}

// compareSRV orders by priority (ascending), then weight (descending). Ties
// are broken by target and port so that the order is stable across queries.
func compareSRV(a, b *dns.SRV) int {
	switch {
	case a.Priority != b.Priority:
		return int(a.Priority) - int(b.Priority)
	case a.Weight != b.Weight:
		return int(b.Weight) - int(a.Weight)
	case a.Target != b.Target:
		return strings.Compare(a.Target, b.Target)
	default:
		return int(a.Port) - int(b.Port)
	}
}
