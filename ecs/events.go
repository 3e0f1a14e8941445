package ecs

// EventKind names a change to the world directory.
type EventKind uint8

const (
	EventEntityRegistered EventKind = iota + 1
	EventEntityDestroyed
	EventWorldReset
)

func (k EventKind) String() string {
	switch k {
	case EventEntityRegistered:
		return "entity_registered"
	case EventEntityDestroyed:
		return "entity_destroyed"
	case EventWorldReset:
		return "world_reset"
	default:
		return "unknown"
	}
}

// Event records a directory change. ID is the directory id involved, empty
// for world resets.
type Event struct {
	Type   EventKind
	Entity Entity
	ID     string
}

// EventQueue collects events until someone drains them. Importers read the
// tail they produced with Since and leave the queue to its owner.
type EventQueue struct {
	items []Event
}

func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain hands back everything queued so far in push order.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Since returns a copy of the events queued after the first mark ones,
// without removing anything.
func (q *EventQueue) Since(mark int) []Event {
	if q == nil {
		return nil
	}
	if mark < 0 {
		mark = 0
	}
	if mark >= len(q.items) {
		return nil
	}
	return append([]Event(nil), q.items[mark:]...)
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}
