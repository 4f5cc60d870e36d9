package fetch

import (
	"fmt"
	"net"
	"strings"
)

// addressPolicy decides which remote hosts a fetch may connect to.
type addressPolicy struct {
	allowlist      []string // hostnames, *.suffix wildcards or CIDRs
	blockPrivate   bool     // RFC 1918 and unique local addresses
	blockLocalhost bool     // loopback
}

func defaultAddressPolicy() addressPolicy {
	return addressPolicy{
		blockPrivate:   true,
		blockLocalhost: true,
	}
}

// resolve looks host up once and returns the address to dial, or an error
// naming the rule that blocked it. Dialing the returned IP instead of the
// name prevents DNS rebinding between check and connect.
func (p addressPolicy) resolve(host string) (string, error) {
	for _, allowed := range p.allowlist {
		if matchesPattern(host, allowed) {
			return host, nil
		}
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil {
			return "", fmt.Errorf("DNS resolution failed: %w", err)
		}
		if len(ips) == 0 {
			return "", fmt.Errorf("DNS resolution failed: no addresses for %s", host)
		}
		ip = ips[0]
	}

	if reason := p.blocked(ip); reason != "" {
		return "", fmt.Errorf("SSRF protection: %s", reason)
	}
	return ip.String(), nil
}

func (p addressPolicy) blocked(ip net.IP) string {
	for _, allowed := range p.allowlist {
		if _, cidr, err := net.ParseCIDR(allowed); err == nil && cidr.Contains(ip) {
			return ""
		}
	}
	switch {
	case p.blockLocalhost && ip.IsLoopback():
		return "localhost/loopback addresses blocked"
	case p.blockPrivate && ip.IsPrivate():
		return "private addresses blocked (RFC 1918)"
	case ip.IsLinkLocalUnicast():
		return "link-local addresses blocked"
	case ip.IsMulticast():
		return "multicast addresses blocked"
	case ip.IsUnspecified():
		return "unspecified address blocked"
	}
	return ""
}

// matchesPattern checks if a host matches a pattern (hostname, IP, or CIDR).
func matchesPattern(host, pattern string) bool {
	if host == pattern {
		return true
	}

	// Wildcard match (*.example.com)
	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]) {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		if _, cidr, err := net.ParseCIDR(pattern); err == nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}
