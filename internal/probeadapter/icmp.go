package probeadapter

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/hydraping/hydraping/internal/endpoint"
)

const (
	protocolICMP   = 1
	protocolICMPv6 = 58
)

// ICMPAdapter sends unprivileged (SOCK_DGRAM) echo requests — no raw
// sockets, works without CAP_NET_RAW on most systems. Once a
// permission error is observed, the check is disabled process-wide
// and never retried.
type ICMPAdapter struct {
	mu     sync.Mutex
	denied bool
	seq    uint32
}

func NewICMPAdapter() *ICMPAdapter {
	return &ICMPAdapter{}
}

// ProbeCapability opens (and immediately closes) an unprivileged ICMP
// socket to determine, once at startup, whether echo requests can be
// sent at all.
func (a *ICMPAdapter) ProbeCapability() bool {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		a.mu.Lock()
		a.denied = true
		a.mu.Unlock()
		return false
	}
	conn.Close()
	return true
}

func (a *ICMPAdapter) Denied() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.denied
}

func (a *ICMPAdapter) markDenied() {
	a.mu.Lock()
	a.denied = true
	a.mu.Unlock()
}

func (a *ICMPAdapter) nextSeq() int {
	a.mu.Lock()
	a.seq++
	s := a.seq
	a.mu.Unlock()
	return int(s)
}

func (a *ICMPAdapter) Probe(ctx context.Context, address string, family endpoint.IPVersionPref) CheckResult {
	started := time.Now()

	if a.Denied() {
		return failed(endpoint.CheckIcmp, started, StatusCapabilityDenied, "ICMP unavailable (insufficient permissions)")
	}

	network, dst, err := resolveForFamily(address, family)
	if err != nil {
		return failed(endpoint.CheckIcmp, started, StatusUnreachable, "name lookup failed: "+err.Error())
	}

	isV6 := network == "udp6"
	listenNet := "udp4"
	listenAddr := "0.0.0.0"
	proto := protocolICMP
	if isV6 {
		listenNet = "udp6"
		listenAddr = "::"
		proto = protocolICMPv6
	}

	conn, err := icmp.ListenPacket(listenNet, listenAddr)
	if err != nil {
		a.markDenied()
		return failed(endpoint.CheckIcmp, started, StatusCapabilityDenied, "ICMP unavailable (insufficient permissions): "+err.Error())
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	msgType := icmp.Type(ipv4.ICMPTypeEcho)
	if isV6 {
		msgType = ipv6.ICMPTypeEchoRequest
	}

	msg := icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  a.nextSeq(),
			Data: []byte("hydraping"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return Internal(endpoint.CheckIcmp, started)
	}

	if _, err := conn.WriteTo(wb, dst); err != nil {
		if ctx.Err() != nil {
			return Canceled(endpoint.CheckIcmp, started)
		}
		return failed(endpoint.CheckIcmp, started, StatusUnreachable, "send failed: "+err.Error())
	}

	rb := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return TimedOut(endpoint.CheckIcmp, started)
			}
			if ctx.Err() != nil {
				return Canceled(endpoint.CheckIcmp, started)
			}
			return failed(endpoint.CheckIcmp, started, StatusUnreachable, "receive failed: "+err.Error())
		}

		rm, err := icmp.ParseMessage(proto, rb[:n])
		if err != nil {
			continue
		}

		latency := time.Since(started).Seconds() * 1000
		switch rm.Type {
		case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
			return ok(endpoint.CheckIcmp, started, latency, "echo reply")
		case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable:
			return failed(endpoint.CheckIcmp, started, StatusUnreachable, "destination unreachable")
		default:
			continue
		}
	}
}

func resolveForFamily(address string, family endpoint.IPVersionPref) (network string, dst net.Addr, err error) {
	netHint := "ip"
	switch family {
	case endpoint.IPv4Only:
		netHint = "ip4"
	case endpoint.IPv6Only:
		netHint = "ip6"
	}

	ipAddr, err := net.ResolveIPAddr(netHint, address)
	if err != nil {
		return "", nil, err
	}

	if ipAddr.IP.To4() != nil {
		return "udp4", &net.UDPAddr{IP: ipAddr.IP}, nil
	}
	return "udp6", &net.UDPAddr{IP: ipAddr.IP}, nil
}
