package probeadapter

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/hydraping/hydraping/internal/endpoint"
)

// DNSAdapter resolves a hostname, optionally racing several
// nameservers and taking the earliest successful response.
type DNSAdapter struct {
	Servers []string // custom_servers from [dns]; empty means system resolver
}

func NewDNSAdapter(servers []string) *DNSAdapter {
	return &DNSAdapter{Servers: servers}
}

func (d *DNSAdapter) Probe(ctx context.Context, host string, family endpoint.IPVersionPref) CheckResult {
	started := time.Now()

	if !isValidHostname(host) {
		return failed(endpoint.CheckDns, started, StatusNameError, "INVALID_NAME")
	}

	if len(d.Servers) == 0 {
		return d.probeWith(ctx, &net.Resolver{}, host, family, started)
	}
	return d.probeRace(ctx, host, family, started)
}

// isValidHostname is a pre-query syntactic check: a name that can
// never resolve is rejected before spending a DNS round trip on it.
func isValidHostname(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "://") || strings.ContainsAny(host, " \t/\\") {
		return false
	}
	return true
}

func (d *DNSAdapter) probeRace(ctx context.Context, host string, family endpoint.IPVersionPref, started time.Time) CheckResult {
	type outcome struct {
		res CheckResult
		ok  bool
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcome, len(d.Servers))
	for _, server := range d.Servers {
		server := server
		resolver := customResolver(server)
		go func() {
			ch <- outcome{res: d.probeWith(ctx, resolver, host, family, started)}
		}()
	}

	var lastFailure CheckResult
	haveFailure := false
	for range d.Servers {
		out := <-ch
		if out.res.Status == StatusOk {
			return out.res
		}
		lastFailure = out.res
		haveFailure = true
	}
	if haveFailure {
		return lastFailure
	}
	return failed(endpoint.CheckDns, started, StatusProtocolError, "no nameservers responded")
}

func customResolver(server string) *net.Resolver {
	addr := server
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, "53")
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{}
			return d.DialContext(ctx, network, addr)
		},
	}
}

func (d *DNSAdapter) probeWith(ctx context.Context, resolver *net.Resolver, host string, family endpoint.IPVersionPref, started time.Time) CheckResult {
	network := "ip"
	switch family {
	case endpoint.IPv4Only:
		network = "ip4"
	case endpoint.IPv6Only:
		network = "ip6"
	}

	addrs, err := resolver.LookupIP(ctx, network, host)
	latency := time.Since(started).Seconds() * 1000

	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			switch {
			case dnsErr.IsNotFound:
				return failed(endpoint.CheckDns, started, StatusNameError, "NXDOMAIN")
			case dnsErr.IsTimeout, ctx.Err() == context.DeadlineExceeded:
				return failed(endpoint.CheckDns, started, StatusTimeout, "DNS query timeout")
			case dnsErr.Temporary():
				return failed(endpoint.CheckDns, started, StatusNameError, "SERVFAIL")
			}
		}
		if errors.Is(err, context.Canceled) {
			return Canceled(endpoint.CheckDns, started)
		}
		return failed(endpoint.CheckDns, started, StatusProtocolError, err.Error())
	}

	if len(addrs) == 0 {
		return failed(endpoint.CheckDns, started, StatusNameError, "NODATA")
	}

	result := ok(endpoint.CheckDns, started, latency, "resolved")
	for _, ip := range addrs {
		result.ResolvedAddresses = append(result.ResolvedAddresses, ip.String())
	}
	return result
}
