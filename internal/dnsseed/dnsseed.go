// Package dnsseed supplies the default state.DNSSeeder: it resolves a
// fixed list of seed hostnames to candidate peer addresses using a direct
// DNS client rather than the system resolver, sending one A query and one
// AAAA query per seed.
package dnsseed

import (
	"context"
	"fmt"

	"github.com/miekg/dns"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
)

// Seeder resolves a fixed list of seed hostnames, each queried for both
// address record types, and returns every routable result found.
type Seeder struct {
	Hosts []string
	Port  uint16

	// Resolver is the nameserver address (host:port) to query; empty uses
	// the system default from /etc/resolv.conf.
	Resolver string
}

// New constructs a Seeder over hosts, defaulting to the system resolver.
func New(hosts []string, port uint16) *Seeder {
	return &Seeder{Hosts: hosts, Port: port}
}

// Seed queries every configured seed hostname for A and AAAA records and
// returns the routable addresses found, tagged with the node's default
// port. Per-host failures are logged and skipped rather than failing the
// whole bootstrap.
func (s *Seeder) Seed(ctx context.Context) ([]addrmgr.PeerAddress, error) {
	resolver := s.Resolver
	if resolver == "" {
		cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(cc.Servers) == 0 {
			resolver = "127.0.0.1:53"
		} else {
			resolver = cc.Servers[0] + ":" + cc.Port
		}
	}

	c := new(dns.Client)
	var out []addrmgr.PeerAddress
	seen := make(map[string]struct{})

	for _, host := range s.Hosts {
		for _, qtype := range [...]uint16{dns.TypeA, dns.TypeAAAA} {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			default:
			}

			m := new(dns.Msg)
			m.SetQuestion(dns.Fqdn(host), qtype)
			resp, _, err := c.ExchangeContext(ctx, m, resolver)
			if err != nil {
				bmlog.Log.WithField("host", host).WithField("err", err).Debug("dnsseed: query failed")
				continue
			}
			for _, rr := range resp.Answer {
				var ip string
				switch rec := rr.(type) {
				case *dns.A:
					ip = rec.A.String()
				case *dns.AAAA:
					ip = rec.AAAA.String()
				default:
					continue
				}
				pa := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: ip, Port: s.Port}
				if !pa.IsRoutable() {
					continue
				}
				key := fmt.Sprintf("%s:%d", pa.Host, pa.Port)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, pa)
			}
		}
	}
	bmlog.Log.WithField("count", len(out)).Debug("dnsseed: resolved bootstrap candidates")
	return out, nil
}
