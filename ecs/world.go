package ecs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/omiloader/ecs/component"
)

var (
	ErrDuplicateID = errors.New("ecs: entity id already registered")
	ErrEmptyID     = errors.New("ecs: entity id is empty")
)

// World owns entities, their components, and the id-keyed entity directory
// that outside consumers use to locate entities.
type World struct {
	entities   entityStore
	components map[component.ComponentID]*SparseSet
	directory  map[string]Entity
	ids        map[Entity]string
	events     EventQueue
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{
		components: make(map[component.ComponentID]*SparseSet),
		directory:  make(map[string]Entity),
		ids:        make(map[Entity]string),
	}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity removes an entity, its components and its directory entry.
func (w *World) DestroyEntity(e Entity) bool {
	if w == nil || !w.entities.destroy(e) {
		return false
	}
	for _, set := range w.components {
		set.Remove(e)
	}
	if id, ok := w.ids[e]; ok {
		delete(w.ids, e)
		delete(w.directory, id)
		w.events.Push(Event{Type: EventEntityDestroyed, Entity: e, ID: id})
	}
	return true
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns all live entities in id order.
func (w *World) Entities() []Entity {
	if w == nil {
		return nil
	}
	return w.entities.all()
}

func (w *World) AddComponent(e Entity, id component.ComponentID, value any) error {
	if w == nil || !w.IsAlive(e) {
		return component.ErrEntityNotAlive
	}
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	set, ok := w.components[id]
	if !ok {
		set = &SparseSet{}
		w.components[id] = set
	}
	set.Set(e, value)
	return nil
}

func (w *World) RemoveComponent(e Entity, id component.ComponentID) bool {
	if w == nil {
		return false
	}
	return w.components[id].Remove(e)
}

func (w *World) HasComponent(e Entity, id component.ComponentID) bool {
	if w == nil || !w.IsAlive(e) {
		return false
	}
	return w.components[id].Has(e)
}

// HasNamed is HasComponent keyed by component name or alias.
func (w *World) HasNamed(e Entity, name string) bool {
	id, ok := component.Lookup(name)
	return ok && w.HasComponent(e, id)
}

// ComponentNames lists the named components attached to e, sorted.
func (w *World) ComponentNames(e Entity) []string {
	if w == nil || !w.IsAlive(e) {
		return nil
	}
	var out []string
	for id, set := range w.components {
		if name := component.Name(id); name != "" && set.Has(e) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (w *World) GetComponent(e Entity, id component.ComponentID) (any, bool) {
	if w == nil || !w.IsAlive(e) {
		return nil, false
	}
	v := w.components[id].Get(e)
	return v, v != nil
}

func (w *World) Query(id component.ComponentID) []Entity {
	if w == nil {
		return nil
	}
	return w.components[id].Entities()
}

// RegisterEntity binds id to e in the entity directory.
func (w *World) RegisterEntity(e Entity, id string) error {
	if w == nil || !w.IsAlive(e) {
		return component.ErrEntityNotAlive
	}
	if id == "" {
		return ErrEmptyID
	}
	if existing, ok := w.directory[id]; ok && existing != e {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if old, ok := w.ids[e]; ok && old != id {
		delete(w.directory, old)
	}
	w.directory[id] = e
	w.ids[e] = id
	w.events.Push(Event{Type: EventEntityRegistered, Entity: e, ID: id})
	return nil
}

// FindEntity looks an entity up by its directory id.
func (w *World) FindEntity(id string) (Entity, bool) {
	if w == nil {
		return 0, false
	}
	e, ok := w.directory[id]
	if !ok || !w.IsAlive(e) {
		return 0, false
	}
	return e, true
}

// EntityID returns the directory id registered for e.
func (w *World) EntityID(e Entity) (string, bool) {
	if w == nil {
		return "", false
	}
	id, ok := w.ids[e]
	return id, ok
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// Reset destroys every entity and clears the directory.
func (w *World) Reset() {
	if w == nil {
		return
	}
	w.entities = entityStore{}
	w.components = make(map[component.ComponentID]*SparseSet)
	w.directory = make(map[string]Entity)
	w.ids = make(map[Entity]string)
	w.events.Drain()
	w.events.Push(Event{Type: EventWorldReset})
}
