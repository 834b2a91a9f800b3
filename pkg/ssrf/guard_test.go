package ssrf

import (
	"context"
	"net/netip"
	"testing"
)

func TestClassifyBlocksDisallowedRanges(t *testing.T) {
	cases := []struct {
		addr   string
		reason Reason
	}{
		{"127.0.0.1", ReasonLoopback},
		{"::1", ReasonLoopback},
		{"10.0.0.5", ReasonPrivate},
		{"172.16.0.1", ReasonPrivate},
		{"192.168.1.1", ReasonPrivate},
		{"169.254.169.254", ReasonCloudMeta},
		{"169.254.1.1", ReasonLinkLocal},
		{"0.0.0.0", ReasonReserved},
		{"240.0.0.1", ReasonReserved},
	}
	for _, c := range cases {
		addr := netip.MustParseAddr(c.addr)
		reason, blocked := classify(addr)
		if !blocked {
			t.Errorf("expected %s to be blocked", c.addr)
			continue
		}
		if reason != c.reason {
			t.Errorf("classify(%s) = %s, want %s", c.addr, reason, c.reason)
		}
	}
}

func TestClassifyAllowsPublicAddresses(t *testing.T) {
	for _, s := range []string{"8.8.8.8", "93.184.216.34", "1.1.1.1"} {
		addr := netip.MustParseAddr(s)
		if _, blocked := classify(addr); blocked {
			t.Errorf("expected %s to be allowed", s)
		}
	}
}

func TestGuardRejectsBadScheme(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuard(ctx)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	if _, err := g.Check(ctx, "ftp://example.com/file"); err == nil {
		t.Fatalf("expected ftp scheme to be rejected")
	}
}

func TestGuardRejectsLiteralLoopback(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuard(ctx)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	_, err = g.Check(ctx, "http://127.0.0.1:8080/admin")
	if err == nil {
		t.Fatalf("expected loopback literal to be rejected")
	}
	sErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if sErr.Reason != ReasonLoopback {
		t.Errorf("reason = %s, want %s", sErr.Reason, ReasonLoopback)
	}
}

func TestGuardRejectsCloudMetadataLiteral(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuard(ctx)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	_, err = g.Check(ctx, "http://169.254.169.254/latest/meta-data/")
	if err == nil {
		t.Fatalf("expected cloud metadata address to be rejected")
	}
}

func TestGuardAllowsPublicLiteral(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuard(ctx)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	host, err := g.Check(ctx, "https://93.184.216.34/index.html")
	if err != nil {
		t.Fatalf("expected public literal address to be allowed, got %v", err)
	}
	if host != "93.184.216.34" {
		t.Errorf("host = %q", host)
	}
}

func TestGuardPolicyDenylist(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuard(ctx, WithDenylist([]string{"93.184.216.34"}))
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	_, err = g.Check(ctx, "https://93.184.216.34/index.html")
	if err == nil {
		t.Fatalf("expected denylisted host to be rejected by policy")
	}
	sErr, ok := err.(*Error)
	if !ok || sErr.Reason != ReasonPolicyDenied {
		t.Fatalf("expected policy_denied reason, got %v", err)
	}
}
