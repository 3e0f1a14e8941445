// Package physics realizes imported bodies, colliders and joints in a
// Chipmunk space. The simulation is planar: 3-D vectors are projected onto
// the XY plane, while the full 3-D world gravity is retained for callers.
package physics

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/ecs/component"
)

var (
	ErrUnsupportedShape = errors.New("physics: unsupported shape")
	ErrNilBody          = errors.New("physics: nil body")
	ErrTooManySystems   = errors.New("physics: too many collision systems")
)

const DefaultIterations = 20

type BodySpec struct {
	Motion          component.MotionType
	Mass            float64
	Position        common.Vec3
	Rotation        common.Quat
	LinearVelocity  common.Vec3
	AngularVelocity common.Vec3
	GravityFactor   float64
}

// World owns the Chipmunk space for one loaded scene.
type World struct {
	space      *cp.Space
	iterations int
	gravity    common.Vec3
	bodies     []*cp.Body
	joints     []*cp.Constraint
	systems    map[string]uint
	logger     *log.Logger
}

func NewWorld(iterations int, logger *log.Logger) *World {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &World{iterations: iterations, logger: logger}
	w.Reset()
	return w
}

// Space returns the underlying Chipmunk space.
func (w *World) Space() *cp.Space {
	if w == nil {
		return nil
	}
	return w.space
}

// SetGravity sets the world gravity vector.
func (w *World) SetGravity(g common.Vec3) {
	if w == nil {
		return
	}
	w.gravity = g
	w.space.SetGravity(cp.Vector{X: g.X, Y: g.Y})
	w.logger.Printf("PhysicsWorld: SetGravity (%.3f, %.3f, %.3f)", g.X, g.Y, g.Z)
}

func (w *World) Gravity() common.Vec3 {
	if w == nil {
		return common.Vec3{}
	}
	return w.gravity
}

func (w *World) BodyCount() int {
	if w == nil {
		return 0
	}
	return len(w.bodies)
}

func (w *World) JointCount() int {
	if w == nil {
		return 0
	}
	return len(w.joints)
}

// Reset drops every body and joint and starts a fresh space.
func (w *World) Reset() {
	if w == nil {
		return
	}
	space := cp.NewSpace()
	space.Iterations = uint(w.iterations)
	space.SetGravity(cp.Vector{X: w.gravity.X, Y: w.gravity.Y})
	w.space = space
	w.bodies = nil
	w.joints = nil
	w.systems = make(map[string]uint)
}

func (w *World) Step(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	w.space.Step(dt)
}

// AddBody creates a body for spec and adds it to the space.
func (w *World) AddBody(spec BodySpec) *cp.Body {
	var body *cp.Body
	switch spec.Motion {
	case component.MotionStatic:
		body = cp.NewStaticBody()
	case component.MotionKinematic:
		body = cp.NewKinematicBody()
	default:
		mass := spec.Mass
		if mass <= 0 {
			mass = 1
		}
		// Moment is recomputed from shapes once they are attached.
		body = cp.NewBody(mass, math.Inf(1))
	}

	body.SetPosition(cp.Vector{X: spec.Position.X, Y: spec.Position.Y})
	body.SetAngle(planarAngle(spec.Rotation))
	if spec.Motion != component.MotionStatic {
		body.SetVelocity(spec.LinearVelocity.X, spec.LinearVelocity.Y)
		body.SetAngularVelocity(spec.AngularVelocity.Z)
	}

	if spec.Motion == component.MotionDynamic && spec.GravityFactor != 1 {
		factor := spec.GravityFactor
		body.SetVelocityUpdateFunc(func(b *cp.Body, gravity cp.Vector, damping float64, dt float64) {
			cp.BodyUpdateVelocity(b, gravity.Mult(factor), damping, dt)
		})
	}

	w.space.AddBody(body)
	w.bodies = append(w.bodies, body)
	return body
}

// AttachShape adds a collider shape to body at offset (body-local).
func (w *World) AttachShape(body *cp.Body, shape component.Shape, offset common.Vec3, mat *component.PhysicsMaterial, filter *component.CollisionFilter, sensor bool) (*cp.Shape, error) {
	if body == nil {
		return nil, ErrNilBody
	}

	off := cp.Vector{X: offset.X, Y: offset.Y}
	var (
		s      *cp.Shape
		moment float64
	)
	mass := body.Mass()
	switch shape.Type {
	case component.ShapeBox:
		hw, hh := shape.Size.X/2, shape.Size.Y/2
		s = cp.NewBox2(body, cp.BB{L: off.X - hw, B: off.Y - hh, R: off.X + hw, T: off.Y + hh}, 0)
		moment = cp.MomentForBox(mass, shape.Size.X, shape.Size.Y)
	case component.ShapeSphere:
		s = cp.NewCircle(body, shape.Radius, off)
		moment = cp.MomentForCircle(mass, 0, shape.Radius, off)
	case component.ShapeCapsule, component.ShapeCylinder:
		half := shape.Height/2 - shape.Radius
		if shape.Type == component.ShapeCylinder {
			half = shape.Height / 2
		}
		if half < 0 {
			half = 0
		}
		a := off.Add(cp.Vector{Y: -half})
		b := off.Add(cp.Vector{Y: half})
		s = cp.NewSegment(body, a, b, shape.Radius)
		moment = cp.MomentForBox(mass, shape.Radius*2, shape.Height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShape, shape.Type)
	}

	if mat != nil {
		s.SetFriction(mat.DynamicFriction)
		s.SetElasticity(mat.Restitution)
	}
	if filter != nil {
		f, err := w.shapeFilter(filter)
		if err != nil {
			return nil, err
		}
		s.SetFilter(f)
	}
	s.SetSensor(sensor)

	if body.GetType() == cp.BODY_DYNAMIC && !sensor && moment > 0 && !math.IsInf(moment, 0) {
		if math.IsInf(body.Moment(), 1) {
			body.SetMoment(moment)
		} else {
			body.SetMoment(body.Moment() + moment)
		}
	}

	w.space.AddShape(s)
	return s, nil
}

// Connect joins two bodies with constraints derived from joint settings.
// A nil b connects a to the static world.
func (w *World) Connect(a, b *cp.Body, settings component.JointSettings, collide bool) ([]*cp.Constraint, error) {
	if a == nil {
		return nil, ErrNilBody
	}
	if b == nil {
		b = w.space.StaticBody
	}

	pivot := a.Position().Add(b.Position()).Mult(0.5)
	anchorA := a.WorldToLocal(pivot)
	anchorB := b.WorldToLocal(pivot)

	var out []*cp.Constraint
	linearLocked := true
	for _, limit := range settings.Limits {
		switch {
		case len(limit.LinearAxes) > 0:
			lo, hi := limitRange(limit)
			if lo == 0 && hi == 0 {
				continue
			}
			linearLocked = false
			out = append(out, cp.NewSlideJoint(a, b, anchorA, anchorB, lo, hi))
		case len(limit.AngularAxes) > 0:
			lo, hi := limitRange(limit)
			out = append(out, cp.NewRotaryLimitJoint(a, b, lo, hi))
		}
	}
	if linearLocked {
		out = append(out, cp.NewPivotJoint(a, b, pivot))
	}
	for _, drive := range settings.Drives {
		if drive.Stiffness <= 0 {
			continue
		}
		if drive.Type == "angular" {
			out = append(out, cp.NewDampedRotarySpring(a, b, drive.PositionTarget, drive.Stiffness, drive.Damping))
			continue
		}
		out = append(out, cp.NewDampedSpring(a, b, anchorA, anchorB, drive.PositionTarget, drive.Stiffness, drive.Damping))
	}

	for _, c := range out {
		c.SetCollideBodies(collide)
		w.space.AddConstraint(c)
	}
	w.joints = append(w.joints, out...)
	return out, nil
}

func limitRange(limit component.JointLimit) (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if limit.Min != nil {
		lo = *limit.Min
	}
	if limit.Max != nil {
		hi = *limit.Max
	}
	if math.IsInf(lo, -1) {
		lo = -math.MaxFloat32
	}
	if math.IsInf(hi, 1) {
		hi = math.MaxFloat32
	}
	return lo, hi
}

// shapeFilter maps named collision systems onto category bits.
func (w *World) shapeFilter(f *component.CollisionFilter) (cp.ShapeFilter, error) {
	bitsOf := func(names []string) (uint, error) {
		var bits uint
		for _, name := range names {
			bit, ok := w.systems[name]
			if !ok {
				if len(w.systems) >= 32 {
					return 0, fmt.Errorf("%w: %q", ErrTooManySystems, name)
				}
				bit = 1 << uint(len(w.systems))
				w.systems[name] = bit
			}
			bits |= bit
		}
		return bits, nil
	}

	all := ^uint(0)
	categories, err := bitsOf(f.CollisionSystems)
	if err != nil {
		return cp.ShapeFilter{}, err
	}
	if len(f.CollisionSystems) == 0 {
		categories = all
	}

	mask := all
	switch {
	case len(f.CollideWithSystems) > 0:
		if mask, err = bitsOf(f.CollideWithSystems); err != nil {
			return cp.ShapeFilter{}, err
		}
	case len(f.NotCollideWithSystems) > 0:
		exclude, err := bitsOf(f.NotCollideWithSystems)
		if err != nil {
			return cp.ShapeFilter{}, err
		}
		mask = all &^ exclude
	}
	return cp.ShapeFilter{Group: 0, Categories: categories, Mask: mask}, nil
}

// planarAngle extracts the rotation around Z.
func planarAngle(q common.Quat) float64 {
	if q.IsZero() {
		return 0
	}
	q = q.Normalized()
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}
