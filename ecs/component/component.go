// Package component declares the data attached to imported entities and the
// typed kinds the ecs package stores them under.
package component

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

// ComponentID is the untyped key of a component kind. Zero is never issued.
type ComponentID uint32

// ComponentKind is the typed key used with ecs.Add, ecs.Get and friends.
type ComponentKind[T any] struct {
	id ComponentID
}

func (k ComponentKind[T]) ID() ComponentID { return k.id }

func (k ComponentKind[T]) Valid() bool { return k.id != 0 }

// Name returns the canonical name the kind was declared with.
func (k ComponentKind[T]) Name() string { return Name(k.id) }

// ComponentHandle is what the package level XComponent variables hold.
type ComponentHandle[T any] struct {
	kind ComponentKind[T]
}

// NewComponent issues a fresh kind for T under name. Aliases resolve to the
// same kind in Lookup; scripts use them to ask about components loosely.
func NewComponent[T any](name string, aliases ...string) ComponentHandle[T] {
	id := ComponentID(lastID.Add(1))
	registry.add(id, name, aliases)
	return ComponentHandle[T]{kind: ComponentKind[T]{id: id}}
}

func (h ComponentHandle[T]) Kind() ComponentKind[T] { return h.kind }

var lastID atomic.Uint32

var registry names

type names struct {
	mu     sync.RWMutex
	byName map[string]ComponentID
	byID   map[ComponentID]string
}

func (n *names) add(id ComponentID, name string, aliases []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.byName == nil {
		n.byName = make(map[string]ComponentID)
		n.byID = make(map[ComponentID]string)
	}
	if name == "" {
		return
	}
	n.byID[id] = name
	for _, key := range append([]string{name}, aliases...) {
		// First declaration keeps a name; later duplicates only get an id.
		if _, taken := n.byName[key]; !taken {
			n.byName[key] = id
		}
	}
}

// Lookup resolves a component name or alias.
func Lookup(name string) (ComponentID, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	id, ok := registry.byName[name]
	return id, ok
}

// Name returns the canonical name for id, or "" for unnamed kinds.
func Name(id ComponentID) string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.byID[id]
}

// Names lists every canonical component name, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.byID))
	for _, name := range registry.byID {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
