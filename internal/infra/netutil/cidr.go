package netutil

import "net"

// ParseCIDRs parses CIDR strings into []*net.IPNet, skipping invalid entries.
func ParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		if _, n, err := net.ParseCIDR(s); err == nil && n != nil {
			out = append(out, n)
		}
	}
	return out
}
