// Package storage defines where labeling sessions are persisted.
package storage

import (
	"errors"

	"github.com/tropicly/labeler/pkg/core"
)

// ErrNotFound is returned by Restore when no session was saved for a file.
var ErrNotFound = errors.New("session not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save persists the snapshot, replacing any earlier save of the same file.
	Save(snap core.Snapshot) error
}

// Restorer is an optional interface for backends that can hand a saved
// session back.
type Restorer interface {
	Restore(fileName string) (core.Snapshot, error)
}

// Locatable is an optional interface for backends that write a file per save.
type Locatable interface {
	Path() string
}
