package probeadapter

// Adapters bundles one instance of each check-kind adapter. Adapter
// state (the shared HTTP client, the DNS resolver list, the ICMP
// capability flag) is process-scoped rather than per-probe, so
// connections and capability detection are reused across ticks.
type Adapters struct {
	DNS  *DNSAdapter
	ICMP *ICMPAdapter
	TCP  *TCPAdapter
	UDP  *UDPAdapter
	HTTP *HTTPAdapter
}

func NewAdapters(dnsServers []string) *Adapters {
	return &Adapters{
		DNS:  NewDNSAdapter(dnsServers),
		ICMP: NewICMPAdapter(),
		TCP:  NewTCPAdapter(),
		UDP:  NewUDPAdapter(),
		HTTP: NewHTTPAdapter(),
	}
}
