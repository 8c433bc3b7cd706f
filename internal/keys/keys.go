// Package keys maps keyboard shortcuts onto navigation.
package keys

import "strings"

// Action is what a key press does.
type Action int

const (
	None Action = iota
	Next
	Previous
)

func (a Action) String() string {
	switch a {
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return "none"
	}
}

// Navigable is the part of the navigator a key press can drive.
type Navigable interface {
	Next()
	Previous()
}

// Keymap binds one key to Next and one key to Previous. Nothing else is bound.
// Keys are compared case-insensitively using the browser KeyboardEvent.key names.
type Keymap struct {
	next     string
	previous string
}

// New creates a keymap. An empty key leaves that action unbound.
func New(next, previous string) Keymap {
	return Keymap{
		next:     strings.ToLower(strings.TrimSpace(next)),
		previous: strings.ToLower(strings.TrimSpace(previous)),
	}
}

// NextKey returns the key bound to Next.
func (k Keymap) NextKey() string { return k.next }

// PreviousKey returns the key bound to Previous.
func (k Keymap) PreviousKey() string { return k.previous }

// Resolve returns the action bound to key.
func (k Keymap) Resolve(key string) Action {
	key = strings.ToLower(key)
	switch {
	case key == "":
		return None
	case key == k.next:
		return Next
	case key == k.previous:
		return Previous
	default:
		return None
	}
}

// Apply resolves key and runs the bound action on nav.
func (k Keymap) Apply(key string, nav Navigable) Action {
	action := k.Resolve(key)
	switch action {
	case Next:
		nav.Next()
	case Previous:
		nav.Previous()
	}
	return action
}
