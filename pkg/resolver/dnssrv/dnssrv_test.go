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

package dnssrv_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/srvpool/pkg/private/xtest"
	"github.com/scionproto/srvpool/pkg/resolver"
	"github.com/scionproto/srvpool/pkg/resolver/dnssrv"
)

func hdr(name string, rrtype uint16) dns.RR_Header {
	return dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: 60}
}

// startServer starts a name server on the loopback interface that serves
// the zone handled by mux over UDP. It returns the server address.
func startServer(t *testing.T, mux *dns.ServeMux) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	serve(t, &dns.Server{PacketConn: pc, Handler: mux})
	return pc.LocalAddr().String()
}

// startDualServer is like startServer, but also serves the zone over TCP on
// the same port.
func startDualServer(t *testing.T, mux *dns.ServeMux) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	pc, err := net.ListenPacket("udp", l.Addr().String())
	if err != nil {
		_ = l.Close()
	}
	require.NoError(t, err)
	serve(t, &dns.Server{Listener: l, Handler: mux})
	serve(t, &dns.Server{PacketConn: pc, Handler: mux})
	return l.Addr().String()
}

func serve(t *testing.T, srv *dns.Server) {
	t.Helper()
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ActivateAndServe()
	}()
	xtest.AssertReadReturnsBefore(t, started, time.Second)
	t.Cleanup(func() {
		_ = srv.Shutdown()
		<-done
	})
}

// truncatingZone answers SRV queries over UDP with a truncated response that
// only carries the first record. Over TCP the full answer is returned. UDP
// queries without EDNS0 are refused.
func truncatingZone() *dns.ServeMux {
	mux := dns.NewServeMux()
	mux.HandleFunc("_big._tcp.example.com.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		for i, target := range []string{"a.example.com.", "b.example.com.", "c.example.com."} {
			m.Answer = append(m.Answer, &dns.SRV{Hdr: hdr(q.Name, dns.TypeSRV),
				Priority: 10, Weight: 10, Port: uint16(8080 + i), Target: target})
		}
		if w.RemoteAddr().Network() == "udp" {
			if r.IsEdns0() == nil {
				m.SetRcode(r, dns.RcodeRefused)
				m.Answer = nil
			} else {
				m.Truncated = true
				m.Answer = m.Answer[:1]
			}
		}
		_ = w.WriteMsg(m)
	})
	return mux
}

func testZone() *dns.ServeMux {
	mux := dns.NewServeMux()
	mux.HandleFunc("_api._tcp.example.com.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		if q.Qtype == dns.TypeSRV {
			m.Answer = []dns.RR{
				&dns.SRV{Hdr: hdr(q.Name, dns.TypeSRV), Priority: 20, Weight: 10,
					Port: 8082, Target: "c.example.com."},
				&dns.SRV{Hdr: hdr(q.Name, dns.TypeSRV), Priority: 10, Weight: 5,
					Port: 8081, Target: "b.example.com."},
				&dns.SRV{Hdr: hdr(q.Name, dns.TypeSRV), Priority: 10, Weight: 50,
					Port: 8080, Target: "a.example.com."},
			}
		}
		_ = w.WriteMsg(m)
	})
	mux.HandleFunc("plain.example.com.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch q.Qtype {
		case dns.TypeA:
			m.Answer = []dns.RR{&dns.A{Hdr: hdr(q.Name, dns.TypeA), A: net.IPv4(192, 0, 2, 1)}}
		case dns.TypeAAAA:
			m.Answer = []dns.RR{
				&dns.AAAA{Hdr: hdr(q.Name, dns.TypeAAAA), AAAA: net.ParseIP("2001:db8::1")},
			}
		}
		_ = w.WriteMsg(m)
	})
	mux.HandleFunc("missing.example.com.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeNameError)
		_ = w.WriteMsg(m)
	})
	return mux
}

func TestResolve(t *testing.T) {
	addr := startServer(t, testZone())

	testCases := map[string]struct {
		host        string
		defaultPort int
		want        []resolver.Record
	}{
		"srv ordered by priority and weight": {
			host: "_api._tcp.example.com",
			want: []resolver.Record{
				{Name: "a.example.com", Port: 8080},
				{Name: "b.example.com", Port: 8081},
				{Name: "c.example.com", Port: 8082},
			},
		},
		"no srv without default port": {
			host: "plain.example.com",
			want: []resolver.Record{},
		},
		"address fallback with default port": {
			host:        "plain.example.com",
			defaultPort: 443,
			want: []resolver.Record{
				{Name: "192.0.2.1", Port: 443},
				{Name: "2001:db8::1", Port: 443},
			},
		},
		"nxdomain is empty": {
			host:        "missing.example.com",
			defaultPort: 443,
			want:        []resolver.Record{},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			r := &dnssrv.Resolver{
				Servers:     []string{addr},
				DefaultPort: tc.defaultPort,
				Client:      &dns.Client{Timeout: time.Second},
			}
			got, err := r.Resolve(context.Background(), tc.host)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveFailover(t *testing.T) {
	broken := dns.NewServeMux()
	broken.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeServerFailure)
		_ = w.WriteMsg(m)
	})
	brokenAddr := startServer(t, broken)
	goodAddr := startServer(t, testZone())

	r := &dnssrv.Resolver{
		Servers: []string{brokenAddr, goodAddr},
		Client:  &dns.Client{Timeout: time.Second},
	}
	got, err := r.Resolve(context.Background(), "_api._tcp.example.com")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	r.Servers = []string{brokenAddr}
	_, err = r.Resolve(context.Background(), "_api._tcp.example.com")
	assert.Error(t, err)
}

func TestResolveTruncated(t *testing.T) {
	t.Run("retried over tcp", func(t *testing.T) {
		addr := startDualServer(t, truncatingZone())
		r := &dnssrv.Resolver{
			Servers: []string{addr},
			Client:  &dns.Client{Timeout: time.Second},
		}
		got, err := r.Resolve(context.Background(), "_big._tcp.example.com")
		require.NoError(t, err)
		assert.Equal(t, []resolver.Record{
			{Name: "a.example.com", Port: 8080},
			{Name: "b.example.com", Port: 8081},
			{Name: "c.example.com", Port: 8082},
		}, got)
	})
	t.Run("partial answer is an error", func(t *testing.T) {
		// Only UDP is served, the TCP retry fails.
		addr := startServer(t, truncatingZone())
		r := &dnssrv.Resolver{
			Servers: []string{addr},
			Client:  &dns.Client{Timeout: time.Second},
		}
		got, err := r.Resolve(context.Background(), "_big._tcp.example.com")
		assert.Error(t, err)
		assert.Nil(t, got)
	})
	t.Run("truncated over tcp is an error", func(t *testing.T) {
		mux := dns.NewServeMux()
		mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			m.Truncated = true
			_ = w.WriteMsg(m)
		})
		addr := startDualServer(t, mux)
		r := &dnssrv.Resolver{
			Servers: []string{addr},
			Client:  &dns.Client{Net: "tcp", Timeout: time.Second},
		}
		_, err := r.Resolve(context.Background(), "_big._tcp.example.com")
		assert.Error(t, err)
	})
}

func TestResolveNoServers(t *testing.T) {
	_, err := (&dnssrv.Resolver{}).Resolve(context.Background(), "example.com")
	assert.Error(t, err)
}

func TestServersFromResolvConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	require.NoError(t, os.WriteFile(path,
		[]byte("search example.com\nnameserver 192.0.2.53\nnameserver 2001:db8::53\n"), 0644))

	servers, err := dnssrv.ServersFromResolvConf(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.53:53", "[2001:db8::53]:53"}, servers)

	_, err = dnssrv.ServersFromResolvConf(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
