// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindConfig, "invalid address")
	if err.Error() != "invalid address" {
		t.Errorf("expected 'invalid address', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindAcquisition, "failed to install guard")
	if wrapped.Error() != "failed to install guard: invalid address" {
		t.Errorf("expected 'failed to install guard: invalid address', got '%s'", wrapped.Error())
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindDuplicateAddress, "192.168.1.1 already owned")
	if GetKind(err) != KindDuplicateAddress {
		t.Errorf("expected KindDuplicateAddress, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindCapture, "capture loop ended")
	if GetKind(wrapped) != KindCapture {
		t.Errorf("expected KindCapture, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindAcquisition, "command failed")
	err = Attr(err, "command", "ip addr add")
	err = Attr(err, "exit_code", 1)

	attrs := GetAttributes(err)
	if attrs["command"] != "ip addr add" {
		t.Errorf("expected 'ip addr add', got %v", attrs["command"])
	}
	if attrs["exit_code"] != 1 {
		t.Errorf("expected 1, got %v", attrs["exit_code"])
	}

	wrapped := Wrap(err, KindRelease, "teardown failed")
	wrapped = Attr(wrapped, "guard", "temp_ip")

	allAttrs := GetAttributes(wrapped)
	if allAttrs["command"] != "ip addr add" || allAttrs["guard"] != "temp_ip" {
		t.Errorf("missing attributes: %v", allAttrs)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindConfig:           "config",
		KindAcquisition:      "acquisition",
		KindRelease:          "release",
		KindDuplicateAddress: "duplicate_address",
		KindSignal:           "signal",
		KindCapture:          "capture",
		KindUnknown:          "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
