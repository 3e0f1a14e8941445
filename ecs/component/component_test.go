package component

import "testing"

func TestLookupByNameAndAlias(t *testing.T) {
	cases := []struct {
		name string
		want ComponentID
	}{
		{"collider", ColliderComponent.Kind().ID()},
		{"shape", ColliderComponent.Kind().ID()},
		{"audio", AudioEmitterComponent.Kind().ID()},
		{"gravity", GravityFieldComponent.Kind().ID()},
		{"seat", SeatComponent.Kind().ID()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Lookup(c.name)
			if !ok || got != c.want {
				t.Fatalf("Lookup(%q) = %d, %v; want %d", c.name, got, ok, c.want)
			}
		})
	}
	if _, ok := Lookup("rigidbody"); ok {
		t.Fatalf("unknown name resolved")
	}
}

func TestUnnamedKinds(t *testing.T) {
	a := NewComponent[Seat]("")
	b := NewComponent[Seat]("")
	if !a.Kind().Valid() || a.Kind().ID() == b.Kind().ID() {
		t.Fatalf("expected distinct valid kinds, got %d and %d", a.Kind().ID(), b.Kind().ID())
	}
	if a.Kind().Name() != "" {
		t.Fatalf("unnamed kind has name %q", a.Kind().Name())
	}
	if ColliderComponent.Kind().Name() != "collider" {
		t.Fatalf("collider name = %q", ColliderComponent.Kind().Name())
	}
	for _, n := range Names() {
		if n == "shape" {
			t.Fatalf("alias listed as a canonical name")
		}
	}
}
