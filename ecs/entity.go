package ecs

import "fmt"

// Entity packs a slot index (low 32 bits, starting at 1) with the slot's
// generation (high 32 bits). A destroyed slot is reused with the next
// generation, so stale handles stop resolving.
type Entity uint64

type (
	entityID   uint32
	generation uint32
)

const slotBits = 32

func makeEntity(slot entityID, gen generation) Entity {
	return Entity(gen)<<slotBits | Entity(slot)
}

func (e Entity) id() entityID { return entityID(e & (1<<slotBits - 1)) }

func (e Entity) generation() generation { return generation(e >> slotBits) }

// String renders slot and generation, e.g. "e12.3".
func (e Entity) String() string {
	return fmt.Sprintf("e%d.%d", e.id(), e.generation())
}

// Valid reports whether e names a slot at all; it says nothing about
// liveness, use World.IsAlive for that.
func (e Entity) Valid() bool { return e.id() != 0 }
