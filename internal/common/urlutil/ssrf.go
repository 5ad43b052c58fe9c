package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ErrPrivateAddress marks a host that resolves into a private or reserved range
var ErrPrivateAddress = errors.New("resolved IP is in a private/reserved range")

// LookupFunc resolves a host name, net.LookupIP in production
type LookupFunc func(host string) ([]net.IP, error)

// privateRanges holds private and reserved networks that outbound fetches
// must never reach.
var privateRanges []*net.IPNet

func init() {
	cidrs := []string{
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"169.254.0.0/16", // link-local
		"100.64.0.0/10",  // CGNAT
		"0.0.0.0/8",
		"224.0.0.0/4", // multicast
		"::1/128",
		"fe80::/10",
		"fc00::/7",
		"ff00::/8",
	}
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in SSRF private ranges: %s", cidr))
		}
		privateRanges = append(privateRanges, ipNet)
	}
}

// IsPrivateIP reports whether ip is in a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckPublicHost resolves host and returns its addresses, failing when any
// of them is private or reserved.
func CheckPublicHost(lookup LookupFunc, host string) ([]net.IP, error) {
	ips, err := lookup(host)
	if err != nil {
		return nil, fmt.Errorf("DNS resolution failed for %q: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %q", host)
	}
	for _, ip := range ips {
		if IsPrivateIP(ip) {
			return nil, fmt.Errorf("SSRF protection for %q: %w: %s", host, ErrPrivateAddress, ip)
		}
	}
	return ips, nil
}

// CheckPublicURL applies CheckPublicHost to the host of an http(s) URL.
// Other schemes (data:, blob:, about:) never reach the network and pass.
func CheckPublicURL(lookup LookupFunc, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil
	}
	_, err = CheckPublicHost(lookup, parsed.Hostname())
	return err
}

// DialFunc matches fasthttp.DialFunc without importing fasthttp here
type DialFunc func(addr string) (net.Conn, error)

// SafeDialer resolves the host, rejects the connection if any resolved
// address is private, and otherwise connects to the first one. Checking after
// resolution also blocks DNS rebinding.
func SafeDialer(lookup LookupFunc, dial func(addr string, timeout time.Duration) (net.Conn, error), timeout time.Duration) DialFunc {
	return func(addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		ips, err := CheckPublicHost(lookup, host)
		if err != nil {
			return nil, err
		}
		return dial(net.JoinHostPort(ips[0].String(), port), timeout)
	}
}
