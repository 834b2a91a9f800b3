// Package ssrf implements the fetcher's SSRF guard (spec.md §4.2): a URL is
// acceptable only if its scheme is http/https and every resolved address is
// outside the loopback, private, link-local, cloud-metadata, and reserved
// ranges. It is deliberately fetch-independent so it can be unit tested and
// reused by any future caller that resolves a URL before dialing it.
package ssrf

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"

	"github.com/open-policy-agent/opa/v1/rego"
)

// defaultPolicy is the built-in rego module evaluated after the static
// range checks pass. It default-allows, and lets an operator-supplied
// denylist (exact host-string match only; CIDR entries are not matched
// against addresses) block specific targets without
// recompiling the binary — e.g. blocking a misbehaving publisher domain
// mid-run via config rather than code.
const defaultPolicy = `
package ssrf

import rego.v1

default allow := true

allow := false if {
	some denied in input.denylist
	denied == input.host
}
`

// Reason enumerates why a URL was rejected.
type Reason string

const (
	ReasonScheme       Reason = "invalid_scheme"
	ReasonResolve      Reason = "dns_resolution_failed"
	ReasonLoopback     Reason = "loopback"
	ReasonPrivate      Reason = "private_range"
	ReasonLinkLocal    Reason = "link_local"
	ReasonCloudMeta    Reason = "cloud_metadata"
	ReasonReserved     Reason = "reserved_range"
	ReasonPolicyDenied Reason = "policy_denied"
)

// Error is returned by Guard.Check when a URL is rejected. The offending
// URL never touches the network (spec.md §4.2).
type Error struct {
	URL    string
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ssrf guard rejected %q: %s (%s)", e.URL, e.Reason, e.Detail)
}

const cloudMetadataIP = "169.254.169.254"

// Guard evaluates URLs against the static range checks and an optional
// rego policy (denylist) before a fetch is permitted to proceed.
type Guard struct {
	resolver *net.Resolver
	denylist []string
	query    rego.PreparedEvalQuery
}

// Option configures a Guard.
type Option func(*Guard)

// WithDenylist sets additional hosts the rego policy will reject, even
// when the static range checks pass (e.g. an operator-blocked domain).
func WithDenylist(hosts []string) Option {
	return func(g *Guard) { g.denylist = hosts }
}

// WithResolver overrides the DNS resolver (tests inject a fake).
func WithResolver(r *net.Resolver) Option {
	return func(g *Guard) { g.resolver = r }
}

// NewGuard builds a Guard and compiles its rego policy. Compilation of the
// built-in module cannot fail at runtime; an error here indicates a
// corrupted binary, not bad input.
func NewGuard(ctx context.Context, opts ...Option) (*Guard, error) {
	g := &Guard{resolver: net.DefaultResolver}
	for _, opt := range opts {
		opt(g)
	}

	pq, err := rego.New(
		rego.Query("data.ssrf.allow"),
		rego.Module("ssrf.rego", defaultPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("ssrf: compiling policy: %w", err)
	}
	g.query = pq
	return g, nil
}

// Check validates rawURL's scheme, resolves its host, and rejects it if any
// resolved address falls in a disallowed range or the policy denies it. On
// success it returns the validated hostname.
func (g *Guard) Check(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonScheme, Detail: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &Error{URL: rawURL, Reason: ReasonScheme, Detail: u.Scheme}
	}
	host := u.Hostname()
	if host == "" {
		return "", &Error{URL: rawURL, Reason: ReasonScheme, Detail: "empty host"}
	}

	addrs, err := g.resolveAddrs(ctx, host)
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonResolve, Detail: err.Error()}
	}

	for _, addr := range addrs {
		if reason, blocked := classify(addr); blocked {
			return "", &Error{URL: rawURL, Reason: reason, Detail: addr.String()}
		}
	}

	input := map[string]any{
		"host":     host,
		"denylist": g.denylist,
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonPolicyDenied, Detail: err.Error()}
	}
	if !policyAllows(results) {
		return "", &Error{URL: rawURL, Reason: ReasonPolicyDenied, Detail: host}
	}

	return host, nil
}

func (g *Guard) resolveAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}
	ipAddrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(ipAddrs))
	for _, ia := range ipAddrs {
		if addr, ok := netip.AddrFromSlice(ia.IP); ok {
			out = append(out, addr.Unmap())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no addresses resolved for %q", host)
	}
	return out, nil
}

// classify returns the reason an address is blocked, or ("", false) if it
// is an acceptable public address.
func classify(addr netip.Addr) (Reason, bool) {
	if addr.String() == cloudMetadataIP {
		return ReasonCloudMeta, true
	}
	switch {
	case addr.IsLoopback():
		return ReasonLoopback, true
	case addr.IsPrivate():
		return ReasonPrivate, true
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return ReasonLinkLocal, true
	case addr.IsUnspecified(), addr.IsMulticast(), !addr.IsGlobalUnicast(),
		addr.Is4() && addr.As4()[0] >= 240: // 240.0.0.0/4 reserved
		return ReasonReserved, true
	}
	return "", false
}

func policyAllows(results rego.ResultSet) bool {
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}
	allow, _ := results[0].Expressions[0].Value.(bool)
	return allow
}
