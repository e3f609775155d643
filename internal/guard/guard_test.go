// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package guard

import (
	"errors"
	"testing"

	"grimm.is/sleepproxy/internal/logging"
)

func TestAcquireRunsAddAction(t *testing.T) {
	var got Action
	g, err := Acquire("temp_ip", func(a Action) error {
		got = a
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ActionAdd {
		t.Errorf("expected ActionAdd, got %v", got)
	}
	g.Release(logging.Discard())
}

func TestAcquireFailurePropagates(t *testing.T) {
	sentinel := errors.New("command failed")
	g, err := Acquire("temp_ip", func(Action) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if g != nil {
		t.Error("expected nil guard on acquisition failure")
	}
}

func TestReleaseAtMostOnce(t *testing.T) {
	calls := 0
	g, err := Acquire("temp_ip", func(a Action) error {
		if a == ActionDel {
			calls++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Release(logging.Discard())
	g.Release(logging.Discard())
	g.Release(logging.Discard())
	if calls != 1 {
		t.Errorf("expected exactly 1 release call, got %d", calls)
	}
}

func TestReleaseOnNilGuardIsNoop(t *testing.T) {
	var g *Guard
	g.Release(logging.Discard()) // must not panic
}

func TestReleaseFailureIsLoggedNotPropagated(t *testing.T) {
	g, err := Acquire("temp_ip", func(a Action) error {
		if a == ActionDel {
			return errors.New("ip addr del failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Release has no return value; the important assertion is simply
	// that this does not panic or otherwise escape.
	g.Release(logging.Discard())
	if !g.Released() {
		t.Error("expected guard to be marked released even though the del action failed")
	}
}

func TestListLIFOTeardown(t *testing.T) {
	var order []string
	var l List
	for _, name := range []string{"reject-tcp", "reject-udp", "drop-port-22", "temp-ip"} {
		n := name
		if err := l.Acquire(logging.Discard(), n, func(a Action) error {
			if a == ActionDel {
				order = append(order, n)
			}
			return nil
		}); err != nil {
			t.Fatalf("unexpected error acquiring %s: %v", n, err)
		}
	}
	l.ReleaseAll(logging.Discard())

	want := []string{"temp-ip", "drop-port-22", "reject-udp", "reject-tcp"}
	if len(order) != len(want) {
		t.Fatalf("expected %d releases, got %d: %v", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("release order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestListRollbackOnPartialInstall(t *testing.T) {
	var released []string
	var l List

	if err := l.Acquire(logging.Discard(), "reject-tcp", func(a Action) error {
		if a == ActionDel {
			released = append(released, "reject-tcp")
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.Acquire(logging.Discard(), "reject-udp", func(a Action) error {
		if a == ActionDel {
			released = append(released, "reject-udp")
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranThirdAdd := false
	err := l.Acquire(logging.Discard(), "temp-ip", func(a Action) error {
		if a == ActionAdd {
			ranThirdAdd = true
			return errors.New("ip addr add failed")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected acquisition failure to propagate")
	}
	if !ranThirdAdd {
		t.Fatal("expected the failing add action to have run")
	}
	if l.Len() != 0 {
		t.Errorf("expected list to be empty after rollback, got %d", l.Len())
	}
	if len(released) != 2 || released[0] != "reject-udp" || released[1] != "reject-tcp" {
		t.Errorf("expected reverse rollback of [reject-udp reject-tcp], got %v", released)
	}
}

func TestListReleaseFromPartial(t *testing.T) {
	var released []string
	var l List
	for _, name := range []string{"reject-tcp", "temp-ip", "icmp-block"} {
		n := name
		if err := l.Acquire(logging.Discard(), n, func(a Action) error {
			if a == ActionDel {
				released = append(released, n)
			}
			return nil
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	l.ReleaseFrom(logging.Discard(), 2) // keep reject-tcp and temp-ip installed
	if l.Len() != 2 {
		t.Fatalf("expected 2 guards remaining, got %d", l.Len())
	}
	if len(released) != 1 || released[0] != "icmp-block" {
		t.Errorf("expected only icmp-block released, got %v", released)
	}
}
