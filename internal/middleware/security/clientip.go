package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver trusts forwarding headers only from known proxy networks.
type IPResolver struct {
	trustedProxies []*net.IPNet
}

// NewIPResolver trusts loopback and private networks plus any extra CIDRs.
func NewIPResolver(extra ...string) (*IPResolver, error) {
	r := &IPResolver{}
	for _, cidr := range append([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, extra...) {
		if err := r.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *IPResolver) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	r.trustedProxies = append(r.trustedProxies, network)
	return nil
}

// ClientIP returns the direct peer address unless it is a trusted proxy, in
// which case the first valid X-Forwarded-For or X-Real-IP entry wins.
func (r *IPResolver) ClientIP(req *http.Request) string {
	directIP, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		directIP = req.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !r.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (r *IPResolver) isTrustedProxy(ip net.IP) bool {
	for _, network := range r.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
