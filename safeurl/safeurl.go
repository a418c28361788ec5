// Package safeurl screens page URLs received over the API before they are
// captured, so that a remote caller cannot point the fetcher or browser at
// loopback, link-local or private addresses.
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned for anything but http and https.
	ErrUnsafeScheme = errors.New("safeurl: scheme must be http or https")
	// ErrPrivateAddress is returned when the host is or resolves to a
	// non-public address.
	ErrPrivateAddress = errors.New("safeurl: host resolves to a private address")
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
}

// Resolver looks up a host's addresses; *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Checker validates URLs. The zero value uses net.DefaultResolver.
type Checker struct {
	Resolver Resolver
}

// Check returns nil when rawURL is http(s) with a host that neither is nor
// resolves to a private address. Lookup failures pass: the capture itself
// will fail to connect.
func (c Checker) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safeurl: parse: %w", err)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("safeurl: url has no host")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return ErrPrivateAddress
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if Private(addr) {
			return ErrPrivateAddress
		}
		return nil
	}

	r := c.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if addr, err := netip.ParseAddr(a); err == nil && Private(addr) {
			return ErrPrivateAddress
		}
	}
	return nil
}

// Check validates rawURL with the default resolver.
func Check(ctx context.Context, rawURL string) error {
	return Checker{}.Check(ctx, rawURL)
}

// Private reports whether addr is loopback, link-local, unspecified or in a
// private range.
func Private(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified() || addr.IsPrivate() {
		return true
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
