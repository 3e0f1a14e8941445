package physics

import (
	"bytes"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/ecs/component"
)

func newTestWorld() *World {
	return NewWorld(0, log.New(&bytes.Buffer{}, "", 0))
}

func TestGravityAndFall(t *testing.T) {
	w := newTestWorld()
	w.SetGravity(common.Vec3{Y: -9.8, Z: 2})

	if g := w.Space().Gravity(); g.X != 0 || g.Y != -9.8 {
		t.Fatalf("space gravity = %+v", g)
	}
	if w.Gravity().Z != 2 {
		t.Fatalf("full gravity vector should be retained, got %+v", w.Gravity())
	}

	body := w.AddBody(BodySpec{Motion: component.MotionDynamic, Mass: 2, Position: common.Vec3{Y: 10}, GravityFactor: 1})
	if _, err := w.AttachShape(body, component.Shape{Type: component.ShapeBox, Size: common.Vec3{X: 1, Y: 1, Z: 1}}, common.Vec3{}, &component.PhysicsMaterial{DynamicFriction: 0.5}, nil, false); err != nil {
		t.Fatalf("AttachShape: %v", err)
	}
	for i := 0; i < 10; i++ {
		w.Step(1.0 / 60)
	}
	if body.Position().Y >= 10 {
		t.Fatalf("dynamic body should fall, y=%v", body.Position().Y)
	}
	if w.BodyCount() != 1 {
		t.Fatalf("BodyCount = %d", w.BodyCount())
	}
}

func TestGravityFactorZeroFloats(t *testing.T) {
	w := newTestWorld()
	w.SetGravity(common.Vec3{Y: -9.8})
	body := w.AddBody(BodySpec{Motion: component.MotionDynamic, Mass: 1, Position: common.Vec3{Y: 5}, GravityFactor: 0})
	if _, err := w.AttachShape(body, component.Shape{Type: component.ShapeSphere, Radius: 0.5}, common.Vec3{}, nil, nil, false); err != nil {
		t.Fatalf("AttachShape: %v", err)
	}
	for i := 0; i < 10; i++ {
		w.Step(1.0 / 60)
	}
	if math.Abs(body.Position().Y-5) > 1e-9 {
		t.Fatalf("body with zero gravity factor moved to %v", body.Position().Y)
	}
}

func TestAttachShapeErrors(t *testing.T) {
	w := newTestWorld()
	if _, err := w.AttachShape(nil, component.Shape{Type: component.ShapeBox}, common.Vec3{}, nil, nil, false); !errors.Is(err, ErrNilBody) {
		t.Fatalf("expected ErrNilBody, got %v", err)
	}
	body := w.AddBody(BodySpec{Motion: component.MotionStatic})
	if _, err := w.AttachShape(body, component.Shape{Type: component.ShapeTrimesh}, common.Vec3{}, nil, nil, false); !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("expected ErrUnsupportedShape, got %v", err)
	}
}

func TestCollisionFilterBits(t *testing.T) {
	w := newTestWorld()
	body := w.AddBody(BodySpec{Motion: component.MotionStatic})
	filter := &component.CollisionFilter{CollisionSystems: []string{"players"}, NotCollideWithSystems: []string{"ghosts"}}
	s, err := w.AttachShape(body, component.Shape{Type: component.ShapeSphere, Radius: 1}, common.Vec3{}, nil, filter, true)
	if err != nil {
		t.Fatalf("AttachShape: %v", err)
	}
	f := s.Filter
	if f.Categories != 1 {
		t.Fatalf("categories = %b", f.Categories)
	}
	if f.Mask&2 != 0 || f.Mask&1 == 0 {
		t.Fatalf("mask = %b", f.Mask)
	}
}

func TestConnect(t *testing.T) {
	w := newTestWorld()
	a := w.AddBody(BodySpec{Motion: component.MotionDynamic, Mass: 1})
	b := w.AddBody(BodySpec{Motion: component.MotionDynamic, Mass: 1, Position: common.Vec3{X: 2}})

	lo, hi := -0.5, 0.5
	cases := []struct {
		name     string
		settings component.JointSettings
		want     int
	}{
		{"fixed", component.JointSettings{}, 1},
		{"hinge_limited", component.JointSettings{Limits: []component.JointLimit{{AngularAxes: []int{2}, Min: &lo, Max: &hi}}}, 2},
		{"slider", component.JointSettings{Limits: []component.JointLimit{{LinearAxes: []int{0}, Min: &lo, Max: &hi}}}, 1},
		{"spring_drive", component.JointSettings{Drives: []component.JointDrive{{Type: "linear", Stiffness: 10, Damping: 1}}}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := w.Connect(a, b, c.settings, false)
			if err != nil {
				t.Fatalf("Connect: %v", err)
			}
			if len(got) != c.want {
				t.Fatalf("expected %d constraints, got %d", c.want, len(got))
			}
		})
	}

	if _, err := w.Connect(a, nil, component.JointSettings{}, false); err != nil {
		t.Fatalf("Connect to static world: %v", err)
	}
	w.Reset()
	if w.BodyCount() != 0 || w.JointCount() != 0 {
		t.Fatalf("expected empty world after reset")
	}
}

func TestPlanarAngle(t *testing.T) {
	q := common.QuatFromAxisAngle(common.Vec3{Z: 1}, math.Pi/2)
	if got := planarAngle(q); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("planarAngle = %v", got)
	}
	if planarAngle(common.Quat{}) != 0 {
		t.Fatalf("zero quaternion should map to zero angle")
	}
}
