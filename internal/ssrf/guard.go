// Package ssrf validates outbound URLs against server-side request
// forgery. Private address ranges are computed via range containment
// on parsed IPs, never via string matching.
package ssrf

import (
	"net"
	"net/url"
	"strings"
)

// Result is the outcome of a URL validation.
type Result struct {
	Valid  bool
	Reason string
}

// privateV4Ranges are the blocked IPv4 ranges in CIDR form.
var privateV4Ranges = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"0.0.0.0/8",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("ssrf: bad builtin CIDR " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ip is a private, loopback, link-local, or
// this-network IPv4 address, or the IPv6 loopback (including its
// IPv4-mapped form). Unparseable input is not private.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	// To4 also unwraps IPv4-mapped IPv6 (::ffff:127.0.0.1).
	if v4 := parsed.To4(); v4 != nil {
		for _, n := range privateV4Ranges {
			if n.Contains(v4) {
				return true
			}
		}
		return false
	}

	return parsed.Equal(net.IPv6loopback)
}

// blockedHostname reports whether host is a private-network name that
// never resolves publicly.
func blockedHostname(host string) bool {
	h := strings.ToLower(host)
	return h == "localhost" || strings.HasSuffix(h, ".local") || strings.HasSuffix(h, ".internal")
}

// ValidateURL checks a URL for SSRF safety. The check order is scheme,
// then embedded credentials, then private-IP/hostname. allowPrivate
// waives only the last group: a caller that sets it for convenience
// still cannot fetch a file: URL or leak Basic-Auth credentials.
func ValidateURL(raw string, allowPrivate bool) Result {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return Result{Reason: "Invalid URL"}
	}

	// Scheme before host: file: and javascript: URLs have no host and
	// must still be reported by scheme.
	switch u.Scheme {
	case "http", "https":
	default:
		return Result{Reason: "Scheme not allowed: " + u.Scheme}
	}

	if u.Host == "" {
		return Result{Reason: "Invalid URL"}
	}

	if u.User != nil {
		return Result{Reason: "Credentials in URL not allowed"}
	}

	host := u.Hostname()
	if !allowPrivate {
		if ip := net.ParseIP(host); ip != nil {
			if IsPrivateIP(host) {
				return Result{Reason: "Private IP address blocked"}
			}
		} else if blockedHostname(host) {
			return Result{Reason: "Blocked hostname"}
		}
	}

	return Result{Valid: true}
}
