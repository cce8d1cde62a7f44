// Package jar implements the undo/redo history of the user's fruit jar.
//
// The jar is kept as an arena of immutable snapshots plus a cursor. Undo and
// redo only move the cursor; every other change computes the next full
// snapshot and pushes it, discarding any snapshots after the cursor.
package jar

import (
	"errors"
	"fmt"

	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

var (
	ErrEmptyHistory    = errors.New("history has no snapshots")
	ErrIndexOutOfRange = errors.New("history index out of range")
	ErrNonEmptyBase    = errors.New("first snapshot is not the empty jar")
	ErrDuplicateJarID  = errors.New("duplicate jar id in snapshot")
	ErrMissingJarID    = errors.New("jar fruit without jar id")
)

// Snapshot is one complete state of the jar.
type Snapshot []fruit.JarFruit

func (s Snapshot) clone() Snapshot {
	return append(Snapshot{}, s...)
}

// validate checks that every jar id in s is present and unique.
func (s Snapshot) validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, jf := range s {
		if jf.JarID == "" {
			return ErrMissingJarID
		}
		if _, dup := seen[jf.JarID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateJarID, jf.JarID)
		}
		seen[jf.JarID] = struct{}{}
	}
	return nil
}

// History is the ordered list of jar snapshots and the cursor selecting the
// active one. Snapshots[0] is always the empty jar.
type History struct {
	Snapshots []Snapshot
	Index     int
}

// Default returns the initial history: a single empty jar.
func Default() History {
	return History{Snapshots: []Snapshot{{}}, Index: 0}
}

// Current returns a copy of the active snapshot.
func (h History) Current() Snapshot {
	return h.Snapshots[h.Index].clone()
}

// Push drops every snapshot after the cursor, appends a copy of s and moves
// the cursor onto it.
func (h *History) Push(s Snapshot) {
	kept := h.Snapshots[: h.Index+1 : h.Index+1]
	h.Snapshots = append(kept, s.clone())
	h.Index = len(h.Snapshots) - 1
}

// Undo moves the cursor back one snapshot. It reports false at the start of
// history.
func (h *History) Undo() bool {
	if h.Index <= 0 {
		return false
	}
	h.Index--
	return true
}

// Redo moves the cursor forward one snapshot. It reports false when there is
// nothing to redo.
func (h *History) Redo() bool {
	if h.Index >= len(h.Snapshots)-1 {
		return false
	}
	h.Index++
	return true
}

func (h History) CanUndo() bool { return h.Index > 0 }

func (h History) CanRedo() bool { return h.Index < len(h.Snapshots)-1 }

// Len is the number of snapshots, including the empty base.
func (h History) Len() int { return len(h.Snapshots) }

// Clone returns a deep copy of h.
func (h History) Clone() History {
	out := History{Snapshots: make([]Snapshot, len(h.Snapshots)), Index: h.Index}
	for i, s := range h.Snapshots {
		out.Snapshots[i] = s.clone()
	}
	return out
}

// Validate reports the first broken invariant, or nil.
func (h History) Validate() error {
	if len(h.Snapshots) == 0 {
		return ErrEmptyHistory
	}
	if h.Index < 0 || h.Index >= len(h.Snapshots) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, h.Index, len(h.Snapshots))
	}
	if len(h.Snapshots[0]) != 0 {
		return ErrNonEmptyBase
	}
	for i, s := range h.Snapshots {
		if err := s.validate(); err != nil {
			return fmt.Errorf("snapshot %d: %w", i, err)
		}
	}
	return nil
}

// clamp repairs the structural invariants in place: it restores the empty
// base snapshot and pulls the cursor back into range.
func (h *History) clamp() {
	if len(h.Snapshots) == 0 {
		*h = Default()
		return
	}
	if len(h.Snapshots[0]) != 0 {
		h.Snapshots = append([]Snapshot{{}}, h.Snapshots...)
		h.Index++
	}
	if h.Index < 0 {
		h.Index = 0
	}
	if h.Index >= len(h.Snapshots) {
		h.Index = len(h.Snapshots) - 1
	}
}
