// Package endpoint parses user-configured targets into the tagged
// variants HydraPing probes, and derives the set of checks applicable
// to each one.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/hydraping/hydraping/internal/apperr"
)

// CheckKind is a probe layer. The constants are not declared in
// priority order; Priority ranks them Http > Tcp = Udp > Dns > Icmp for
// primary-pick and suppression.
type CheckKind int

const (
	CheckDns CheckKind = iota
	CheckIcmp
	CheckTcp
	CheckUdp
	CheckHttp
)

func (k CheckKind) String() string {
	switch k {
	case CheckDns:
		return "DNS"
	case CheckIcmp:
		return "ICMP"
	case CheckTcp:
		return "TCP"
	case CheckUdp:
		return "UDP"
	case CheckHttp:
		return "HTTP"
	default:
		return "UNKNOWN"
	}
}

// Priority returns this check's rank in the suppression/primary-pick
// hierarchy. Higher is more authoritative.
func (k CheckKind) Priority() int {
	switch k {
	case CheckIcmp:
		return 0
	case CheckDns:
		return 1
	case CheckUdp:
		return 2
	case CheckTcp:
		return 2
	case CheckHttp:
		return 3
	default:
		return -1
	}
}

func ParseCheckKind(s string) (CheckKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dns":
		return CheckDns, true
	case "icmp":
		return CheckIcmp, true
	case "tcp":
		return CheckTcp, true
	case "udp":
		return CheckUdp, true
	case "http":
		return CheckHttp, true
	default:
		return 0, false
	}
}

// Kind is the endpoint variant, differing only in ApplicableChecks
// derivation (design note: "prefer a tagged variant with a pure
// derivation function over inheritance").
type Kind int

const (
	KindIP Kind = iota
	KindIPPort
	KindDomain
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindIP:
		return "ip"
	case KindIPPort:
		return "ip_port"
	case KindDomain:
		return "domain"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

type IPVersionPref int

const (
	IPAny IPVersionPref = iota
	IPv4Only
	IPv6Only
)

type PortProtocol int

const (
	ProtoTcp PortProtocol = iota
	ProtoUdp
)

// Endpoint is an immutable record describing one monitored target.
type Endpoint struct {
	ID                   string
	Label                string
	Kind                 Kind
	IPVersionPref        IPVersionPref
	PortProtocol         PortProtocol
	Host                 string
	Port                 int // 0 when not applicable (KindIP)
	Path                 string
	Scheme               string // "http" or "https", KindHTTP only
	DomainTCPPorts       []int  // KindDomain only: [80, 443]
	ApplicableChecks     []CheckKind
	PrimaryCheckOverride *CheckKind
}

// HasCheck reports whether kind is in ApplicableChecks.
func (e Endpoint) HasCheck(kind CheckKind) bool {
	for _, c := range e.ApplicableChecks {
		if c == kind {
			return true
		}
	}
	return false
}

// RawTarget is the shape of one `[endpoints] targets` entry, whether it
// arrived as a bare TOML string or a structured table.
type RawTarget struct {
	URL              string
	Name             string
	Protocol         string // "tcp" | "udp", optional
	IPVersion        int    // 0 (unset), 4, or 6
	PrimaryCheckType string // optional
}

// Parse converts raw target entries into ordered Endpoint records.
// Errors surface as *apperr.ConfigErr naming the offending index.
func Parse(entries []RawTarget) ([]Endpoint, error) {
	if len(entries) == 0 {
		return nil, apperr.NewConfigErr(-1, "endpoints.targets", "endpoint list is empty")
	}

	out := make([]Endpoint, 0, len(entries))
	for i, raw := range entries {
		ep, err := parseOne(i, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}

func parseOne(index int, raw RawTarget) (Endpoint, error) {
	target := strings.TrimSpace(raw.URL)
	if target == "" {
		return Endpoint{}, apperr.NewConfigErr(index, "url", "empty target")
	}

	var ep Endpoint
	var err error

	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		ep, err = parseHTTP(index, target)
	default:
		if host, port, ok := parseHostPort(target); ok {
			ep, err = parseIPPort(index, target, host, port, raw.Protocol)
		} else if isIPLiteral(target) {
			ep = parseIP(target)
		} else {
			ep = parseDomain(target)
		}
	}
	if err != nil {
		return Endpoint{}, err
	}

	ep.ID = normalizeID(ep)
	if raw.Name != "" {
		ep.Label = raw.Name
	}
	if raw.IPVersion == 4 {
		ep.IPVersionPref = IPv4Only
	} else if raw.IPVersion == 6 {
		ep.IPVersionPref = IPv6Only
	}

	if raw.PrimaryCheckType != "" {
		kind, ok := ParseCheckKind(raw.PrimaryCheckType)
		if !ok {
			return Endpoint{}, apperr.NewConfigErr(index, "primary_check_type",
				fmt.Sprintf("unknown check type %q", raw.PrimaryCheckType))
		}
		if !ep.HasCheck(kind) {
			return Endpoint{}, apperr.NewConfigErr(index, "primary_check_type",
				fmt.Sprintf("%s is not applicable to endpoint %q", kind, ep.Label))
		}
		ep.PrimaryCheckOverride = &kind
	}

	if len(ep.ApplicableChecks) == 0 {
		return Endpoint{}, apperr.NewConfigErr(index, "url", "endpoint has no applicable checks")
	}
	return ep, nil
}

func parseHTTP(index int, target string) (Endpoint, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return Endpoint{}, apperr.NewConfigErr(index, "url", fmt.Sprintf("invalid URL: %s", target))
	}

	host := u.Hostname()
	scheme := u.Scheme
	port := 80
	if scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		n, perr := strconv.Atoi(p)
		if perr != nil {
			return Endpoint{}, apperr.NewConfigErr(index, "url", fmt.Sprintf("invalid port in %s", target))
		}
		port = n
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	return Endpoint{
		Label:  target,
		Kind:   KindHTTP,
		Host:   host,
		Port:   port,
		Path:   path,
		Scheme: scheme,
		ApplicableChecks: []CheckKind{CheckDns, CheckIcmp, CheckTcp, CheckHttp},
	}, nil
}

func parseIPPort(index int, target, host, portStr, protocol string) (Endpoint, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, apperr.NewConfigErr(index, "url", fmt.Sprintf("invalid port in %s", target))
	}

	proto := ProtoTcp
	checks := []CheckKind{CheckIcmp, CheckTcp}
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "tcp":
		proto = ProtoTcp
		checks = []CheckKind{CheckIcmp, CheckTcp}
	case "udp":
		proto = ProtoUdp
		checks = []CheckKind{CheckIcmp, CheckUdp}
	default:
		return Endpoint{}, apperr.NewConfigErr(index, "protocol", fmt.Sprintf("unknown protocol %q", protocol))
	}

	return Endpoint{
		Label:            target,
		Kind:             KindIPPort,
		Host:             host,
		Port:             port,
		PortProtocol:     proto,
		ApplicableChecks: checks,
	}, nil
}

func parseIP(target string) Endpoint {
	return Endpoint{
		Label:            target,
		Kind:             KindIP,
		Host:             target,
		ApplicableChecks: []CheckKind{CheckIcmp},
	}
}

func parseDomain(target string) Endpoint {
	return Endpoint{
		Label:            target,
		Kind:             KindDomain,
		Host:             target,
		DomainTCPPorts:   []int{80, 443},
		ApplicableChecks: []CheckKind{CheckDns, CheckIcmp, CheckTcp},
	}
}

// parseHostPort recognizes "ipv4:port" and "[ipv6]:port" forms. Bare
// hostnames with a colon (there are none in DNS) never match here.
func parseHostPort(s string) (host, port string, ok bool) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 || end+1 >= len(s) || s[end+1] != ':' {
			return "", "", false
		}
		host = s[1:end]
		port = s[end+2:]
		if !isIPLiteral(host) || port == "" {
			return "", "", false
		}
		return host, port, true
	}

	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", "", false
	}
	host = s[:idx]
	port = s[idx+1:]
	if !isIPLiteral(host) || port == "" {
		return "", "", false
	}
	return host, port, true
}

func isIPLiteral(s string) bool {
	return net.ParseIP(s) != nil
}

// normalizeID derives a stable identifier from the endpoint's
// normalized target. It is built from the parsed Scheme/Host/Port/Path
// (and port protocol) rather than the raw user string or the Label, so
// equivalent inputs collapse to one id.
func normalizeID(e Endpoint) string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http:%s://%s:%d%s", e.Scheme, strings.ToLower(e.Host), e.Port, e.Path)
	case KindIPPort:
		proto := "tcp"
		if e.PortProtocol == ProtoUdp {
			proto = "udp"
		}
		return fmt.Sprintf("ipport:%s:%d/%s", e.Host, e.Port, proto)
	case KindDomain:
		return fmt.Sprintf("domain:%s", strings.ToLower(e.Host))
	default:
		return fmt.Sprintf("ip:%s", e.Host)
	}
}
