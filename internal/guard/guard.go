// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package guard implements the Resource Guard: a scoped owner
// of one reversible system effect. A Guard's acquire action runs at
// construction; its release action runs at most once, tolerates a
// not-yet-added state, and never returns an error past itself — a
// release failure is logged and swallowed, matching the rest of this
// tree's rule that destructors never throw.
package guard

import "grimm.is/sleepproxy/internal/logging"

// Action tags which half of a guard's reversible effect is being
// requested: Add to acquire it, Del to release it. A guard's
// ActionFunc must tolerate being called with Del when Add was never
// successfully observed to complete (e.g. acquisition failed midway).
type Action int

const (
	ActionAdd Action = iota
	ActionDel
)

func (a Action) String() string {
	if a == ActionDel {
		return "del"
	}
	return "add"
}

// ActionFunc performs one half of a guard's reversible effect.
type ActionFunc func(Action) error

// Guard is a one-shot owner of a reversible effect. At most one
// acquisition, exactly one release attempt for a live guard.
type Guard struct {
	name     string
	released bool
	action   ActionFunc
}

// Acquire constructs a Guard and immediately runs its add action. If
// the add action fails, the Guard is not created and the caller must
// not call Release on it — acquisition failure is the caller's signal
// to roll back whatever guards were already installed.
func Acquire(name string, action ActionFunc) (*Guard, error) {
	if err := action(ActionAdd); err != nil {
		return nil, err
	}
	return &Guard{name: name, action: action}, nil
}

// Name identifies the guard for logging.
func (g *Guard) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// Release runs the guard's del action at most once. A nil guard, or a
// guard that was already released, is a safe no-op.
// Any error from the del action is logged through logger and never
// propagated.
func (g *Guard) Release(logger *logging.Logger) {
	if g == nil || g.released {
		return
	}
	g.released = true
	if g.action == nil {
		return
	}
	if err := g.action(ActionDel); err != nil {
		logger.Warn("guard release failed", "guard", g.name, "error", err)
	}
}

// Released reports whether Release has already run (or the guard was
// never successfully acquired).
func (g *Guard) Released() bool {
	return g == nil || g.released
}
