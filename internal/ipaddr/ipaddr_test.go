// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipaddr

import "testing"

func TestParseV4(t *testing.T) {
	a, err := Parse("192.0.2.10/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != V4 {
		t.Errorf("expected V4, got %v", a.Family)
	}
	if a.Prefix != 24 {
		t.Errorf("expected prefix 24, got %d", a.Prefix)
	}
	if a.Pure() != "192.0.2.10" {
		t.Errorf("expected pure 192.0.2.10, got %s", a.Pure())
	}
}

func TestParseV6(t *testing.T) {
	a, err := Parse("2001:db8::1/64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != V6 {
		t.Errorf("expected V6, got %v", a.Family)
	}
	if a.Prefix != 64 {
		t.Errorf("expected prefix 64, got %d", a.Prefix)
	}
}

func TestParseV4PrefixOutOfRange(t *testing.T) {
	if _, err := Parse("192.0.2.10/33"); err == nil {
		t.Error("expected error for out-of-range v4 prefix")
	}
}

func TestParseV6PrefixOutOfRange(t *testing.T) {
	if _, err := Parse("2001:db8::1/129"); err == nil {
		t.Error("expected error for out-of-range v6 prefix")
	}
}

func TestParseInvalidIP(t *testing.T) {
	if _, err := Parse("not-an-ip/24"); err == nil {
		t.Error("expected error for invalid IP")
	}
}

// TestBindableLinkLocal checks that an IPv6 link-local fe80::1 on
// eth0 renders as fe80::1%eth0, while any other address renders as
// its pure form.
func TestBindableLinkLocal(t *testing.T) {
	a, err := Parse("fe80::1/64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := a.Bindable("eth0"); got != "fe80::1%eth0" {
		t.Errorf("expected fe80::1%%eth0, got %s", got)
	}
}

func TestBindableOrdinary(t *testing.T) {
	for _, s := range []string{"192.0.2.10/24", "2001:db8::1/64"} {
		a, err := Parse(s)
		if err != nil {
			t.Fatalf("unexpected error parsing %s: %v", s, err)
		}
		if got := a.Bindable("eth0"); got != a.Pure() {
			t.Errorf("expected bindable form to equal pure form for %s, got %s", s, got)
		}
	}
}

func TestCIDR(t *testing.T) {
	a, err := Parse("192.0.2.10/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.CIDR() != "192.0.2.10/24" {
		t.Errorf("expected 192.0.2.10/24, got %s", a.CIDR())
	}
}
