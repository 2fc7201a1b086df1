package gateway

import (
	"fmt"
	"net"
	"os"
	"sort"
)

// NetworkInfo lets the host show scanners how to reach the gateway by
// address when discovery is unavailable.
type NetworkInfo struct {
	Hostname       string   `json:"hostname"`
	Addresses      []string `json:"addresses"`
	DefaultAddress string   `json:"default_address,omitempty"`
	Port           int      `json:"port"`
	Path           string   `json:"path"`
}

// routeAddr is only used to pick the outbound interface. Nothing is sent.
const routeAddr = "192.0.2.1:9"

// LocalNetworkInfo collects the hostname and the non-loopback IPv4
// addresses of interfaces that are up.
func LocalNetworkInfo() (NetworkInfo, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return NetworkInfo{}, fmt.Errorf("reading hostname: %w", err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return NetworkInfo{}, fmt.Errorf("listing interfaces: %w", err)
	}

	addresses := []string{}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ip := ipv4Of(a); ip != nil {
				addresses = append(addresses, ip.String())
			}
		}
	}
	sort.Strings(addresses)

	return NetworkInfo{
		Hostname:       hostname,
		Addresses:      addresses,
		DefaultAddress: defaultOutboundAddress(),
	}, nil
}

func ipv4Of(a net.Addr) net.IP {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return nil
	}
	return ip.To4()
}

// defaultOutboundAddress returns the source address the kernel would use for
// outbound traffic, or "" when there is no route. UDP dial sends no packets.
func defaultOutboundAddress() string {
	conn, err := net.Dial("udp4", routeAddr)
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}
