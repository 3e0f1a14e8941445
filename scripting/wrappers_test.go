package scripting

import (
	"context"
	"errors"
	"testing"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
)

func newCrate(t *testing.T) (*ecs.World, ecs.Entity, *component.Transform) {
	t.Helper()
	w := ecs.NewWorld()
	e := w.CreateEntity()
	if err := w.RegisterEntity(e, "crate"); err != nil {
		t.Fatalf("RegisterEntity: %v", err)
	}
	tr := &component.Transform{Position: common.Vec3{X: 4}, Rotation: common.IdentityQuat, Scale: common.One3}
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), tr); err != nil {
		t.Fatalf("Add transform: %v", err)
	}
	return w, e, tr
}

func TestGetOrCreateCaches(t *testing.T) {
	w, e, _ := newCrate(t)
	wr := NewWrappers()

	a := wr.GetOrCreate(w, e, component.ArchetypeMesh)
	b := wr.GetOrCreate(w, e, component.ArchetypeMesh)
	if a == nil || a != b {
		t.Fatalf("expected cached wrapper, got %p and %p", a, b)
	}
	if got, ok := wr.Lookup(e); !ok || got != a {
		t.Fatalf("Lookup did not find wrapper")
	}
	if wr.GetOrCreate(w, ecs.Entity(0), component.ArchetypeMesh) != nil {
		t.Fatalf("dead entity should not get a wrapper")
	}

	wr.Reset()
	if wr.Len() != 0 {
		t.Fatalf("Len after Reset = %d", wr.Len())
	}
}

func TestRunAgainstWrapper(t *testing.T) {
	w, e, tr := newCrate(t)
	self := NewWrappers().GetOrCreate(w, e, component.ArchetypeMesh)

	src := `
p := self.position()
self.set_position(p[0] + 1, 2, 3)
result := [self.id(), self.archetype(), self.has("transform"), self.has("seat")]
`
	out, err := Run(context.Background(), src, self)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, ok := out.([]any)
	if !ok || len(got) != 4 {
		t.Fatalf("unexpected result %#v", out)
	}
	if got[0] != "crate" || got[1] != "mesh" || got[2] != true || got[3] != false {
		t.Fatalf("unexpected result %#v", got)
	}
	if tr.Position != (common.Vec3{X: 5, Y: 2, Z: 3}) {
		t.Fatalf("set_position not applied: %+v", tr.Position)
	}
}

func TestRunErrors(t *testing.T) {
	if _, err := Run(context.Background(), "x := 1", nil); !errors.Is(err, ErrNoWrapper) {
		t.Fatalf("expected ErrNoWrapper, got %v", err)
	}

	w, e, _ := newCrate(t)
	self := NewWrappers().GetOrCreate(w, e, component.ArchetypeContainer)
	if _, err := Run(context.Background(), `self.set_position("a", 1, 2)`, self); err == nil {
		t.Fatalf("expected argument type error")
	}
	if _, err := Run(context.Background(), `x := `, self); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestHasResolvesAliases(t *testing.T) {
	w, e, _ := newCrate(t)
	if err := ecs.Add(w, e, component.ColliderComponent.Kind(), &component.Collider{}); err != nil {
		t.Fatalf("Add collider: %v", err)
	}
	self := NewWrappers().GetOrCreate(w, e, component.ArchetypeMesh)

	out, err := Run(context.Background(), `result := [self.has(" Shape "), self.has("body"), self.components()]`, self)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, ok := out.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("unexpected result %#v", out)
	}
	if got[0] != true || got[1] != false {
		t.Fatalf("has = %v, %v", got[0], got[1])
	}
	names, ok := got[2].([]any)
	if !ok || len(names) != 2 || names[0] != "collider" || names[1] != "transform" {
		t.Fatalf("components = %#v", got[2])
	}
}
