// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package guard

import "grimm.is/sleepproxy/internal/logging"

// List holds the guards acquired for one episode (or one sub-scope of
// one), in acquisition order. ReleaseAll tears them down in strict
// reverse.
type List struct {
	guards []*Guard
}

// Add appends an already-acquired guard to the list.
func (l *List) Add(g *Guard) {
	l.guards = append(l.guards, g)
}

// Len reports how many guards are currently tracked.
func (l *List) Len() int {
	return len(l.guards)
}

// ReleaseAll releases every tracked guard in strict reverse insertion
// order, then clears the list.
func (l *List) ReleaseAll(logger *logging.Logger) {
	for i := len(l.guards) - 1; i >= 0; i-- {
		l.guards[i].Release(logger)
	}
	l.guards = nil
}

// ReleaseFrom releases the tracked guards at index i and above, in
// reverse order, leaving the guards below i untouched, so the earlier
// guards stay installed while the later ones are torn down.
func (l *List) ReleaseFrom(logger *logging.Logger, i int) {
	if i < 0 {
		i = 0
	}
	for j := len(l.guards) - 1; j >= i; j-- {
		l.guards[j].Release(logger)
	}
	if i < len(l.guards) {
		l.guards = l.guards[:i]
	}
}

// Acquire builds a guard with Acquire and, on success, appends it to
// the list. On failure, it releases everything already in the list
// (in reverse) before returning the error — the rollback-on-partial-
// install law.
func (l *List) Acquire(logger *logging.Logger, name string, action ActionFunc) error {
	g, err := Acquire(name, action)
	if err != nil {
		l.ReleaseAll(logger)
		return err
	}
	l.Add(g)
	return nil
}
