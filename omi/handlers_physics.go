package omi

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
	"github.com/milk9111/omiloader/physics"
)

const (
	KeyShapes           = "omi.shapes"
	KeyPhysicsMaterials = "omi.physics_materials"
	KeyCollisionFilters = "omi.collision_filters"
	KeyJointSettings    = "omi.joint_settings"
)

const standardGravity = 9.80665

type shapesPayload struct {
	Shapes []shapePayload `yaml:"shapes"`
}

type shapePayload struct {
	Type     string          `yaml:"type"`
	Box      *boxPayload     `yaml:"box"`
	Sphere   *roundPayload   `yaml:"sphere"`
	Capsule  *roundPayload   `yaml:"capsule"`
	Cylinder *roundPayload   `yaml:"cylinder"`
	Convex   *meshRefPayload `yaml:"convex"`
	Trimesh  *meshRefPayload `yaml:"trimesh"`
}

type boxPayload struct {
	Size []float64 `yaml:"size"`
}

type roundPayload struct {
	Radius *float64 `yaml:"radius"`
	Height *float64 `yaml:"height"`
}

type meshRefPayload struct {
	Mesh int `yaml:"mesh"`
}

func importShapes(ic *ImportContext, p shapesPayload) error {
	shapes := make([]component.Shape, len(p.Shapes))
	for i, sp := range p.Shapes {
		s, err := sp.shape()
		if err != nil {
			ic.Warnf("shape %d: %v", i, err)
		}
		shapes[i] = s
	}
	ic.SetData(KeyShapes, shapes)
	ic.logger.Printf("Importer: %d physics shapes", len(shapes))
	return nil
}

// shape converts one definition. Unset sizes take the extension defaults.
func (sp shapePayload) shape() (component.Shape, error) {
	radius := func(r *roundPayload, def float64) float64 {
		if r == nil || r.Radius == nil {
			return def
		}
		return *r.Radius
	}
	height := func(r *roundPayload, def float64) float64 {
		if r == nil || r.Height == nil {
			return def
		}
		return *r.Height
	}

	switch component.ShapeType(sp.Type) {
	case component.ShapeBox:
		size := common.One3
		if sp.Box != nil && sp.Box.Size != nil {
			v, ok := common.Vec3From(sp.Box.Size)
			if !ok {
				return component.Shape{}, fmt.Errorf("%w: box size needs 3 values", ErrMalformedExtension)
			}
			size = v
		}
		return component.Shape{Type: component.ShapeBox, Size: size}, nil
	case component.ShapeSphere:
		return component.Shape{Type: component.ShapeSphere, Radius: radius(sp.Sphere, 0.5)}, nil
	case component.ShapeCapsule:
		return component.Shape{Type: component.ShapeCapsule, Radius: radius(sp.Capsule, 0.5), Height: height(sp.Capsule, 2)}, nil
	case component.ShapeCylinder:
		return component.Shape{Type: component.ShapeCylinder, Radius: radius(sp.Cylinder, 0.5), Height: height(sp.Cylinder, 2)}, nil
	case component.ShapeConvex:
		mesh := -1
		if sp.Convex != nil {
			mesh = sp.Convex.Mesh
		}
		return component.Shape{Type: component.ShapeConvex, Mesh: mesh}, nil
	case component.ShapeTrimesh:
		mesh := -1
		if sp.Trimesh != nil {
			mesh = sp.Trimesh.Mesh
		}
		return component.Shape{Type: component.ShapeTrimesh, Mesh: mesh}, nil
	default:
		return component.Shape{}, fmt.Errorf("%w: unknown shape type %q", ErrMalformedExtension, sp.Type)
	}
}

type bodiesPayload struct {
	PhysicsMaterials []materialPayload `yaml:"physicsMaterials"`
	CollisionFilters []filterPayload   `yaml:"collisionFilters"`
}

type materialPayload struct {
	StaticFriction     *float64 `yaml:"staticFriction"`
	DynamicFriction    *float64 `yaml:"dynamicFriction"`
	Restitution        float64  `yaml:"restitution"`
	FrictionCombine    string   `yaml:"frictionCombine"`
	RestitutionCombine string   `yaml:"restitutionCombine"`
}

type filterPayload struct {
	CollisionSystems      []string `yaml:"collisionSystems"`
	CollideWithSystems    []string `yaml:"collideWithSystems"`
	NotCollideWithSystems []string `yaml:"notCollideWithSystems"`
}

func importBodies(ic *ImportContext, p bodiesPayload) error {
	materials := make([]component.PhysicsMaterial, len(p.PhysicsMaterials))
	for i, m := range p.PhysicsMaterials {
		mat := component.PhysicsMaterial{
			StaticFriction:     0.6,
			DynamicFriction:    0.6,
			Restitution:        m.Restitution,
			FrictionCombine:    m.FrictionCombine,
			RestitutionCombine: m.RestitutionCombine,
		}
		if m.StaticFriction != nil {
			mat.StaticFriction = *m.StaticFriction
		}
		if m.DynamicFriction != nil {
			mat.DynamicFriction = *m.DynamicFriction
		}
		materials[i] = mat
	}

	filters := make([]component.CollisionFilter, len(p.CollisionFilters))
	for i, f := range p.CollisionFilters {
		if len(f.CollideWithSystems) > 0 && len(f.NotCollideWithSystems) > 0 {
			ic.Warnf("collision filter %d sets both collideWithSystems and notCollideWithSystems, using collideWithSystems", i)
			f.NotCollideWithSystems = nil
		}
		filters[i] = component.CollisionFilter{
			CollisionSystems:      f.CollisionSystems,
			CollideWithSystems:    f.CollideWithSystems,
			NotCollideWithSystems: f.NotCollideWithSystems,
		}
	}

	ic.SetData(KeyPhysicsMaterials, materials)
	ic.SetData(KeyCollisionFilters, filters)
	ic.logger.Printf("Importer: %d physics materials, %d collision filters", len(materials), len(filters))
	return nil
}

type jointsPayload struct {
	PhysicsJoints []jointSettingsPayload `yaml:"physicsJoints"`
}

type jointSettingsPayload struct {
	Limits []jointLimitPayload `yaml:"limits"`
	Drives []jointDrivePayload `yaml:"drives"`
}

type jointLimitPayload struct {
	LinearAxes  []int    `yaml:"linearAxes"`
	AngularAxes []int    `yaml:"angularAxes"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Stiffness   float64  `yaml:"stiffness"`
	Damping     float64  `yaml:"damping"`
}

type jointDrivePayload struct {
	Type           string  `yaml:"type"`
	Mode           string  `yaml:"mode"`
	Axis           int     `yaml:"axis"`
	MaxForce       float64 `yaml:"maxForce"`
	PositionTarget float64 `yaml:"positionTarget"`
	VelocityTarget float64 `yaml:"velocityTarget"`
	Stiffness      float64 `yaml:"stiffness"`
	Damping        float64 `yaml:"damping"`
}

func importJoints(ic *ImportContext, p jointsPayload) error {
	settings := make([]component.JointSettings, len(p.PhysicsJoints))
	for i, j := range p.PhysicsJoints {
		var js component.JointSettings
		for _, l := range j.Limits {
			if err := checkAxes(l.LinearAxes, l.AngularAxes); err != nil {
				ic.Warnf("joint %d limit: %v", i, err)
				continue
			}
			js.Limits = append(js.Limits, component.JointLimit{
				LinearAxes:  l.LinearAxes,
				AngularAxes: l.AngularAxes,
				Min:         l.Min,
				Max:         l.Max,
				Stiffness:   l.Stiffness,
				Damping:     l.Damping,
			})
		}
		for _, d := range j.Drives {
			if d.Type != "linear" && d.Type != "angular" {
				ic.Warnf("joint %d drive: unknown type %q", i, d.Type)
				continue
			}
			js.Drives = append(js.Drives, component.JointDrive(d))
		}
		settings[i] = js
	}
	ic.SetData(KeyJointSettings, settings)
	ic.logger.Printf("Importer: %d joint settings", len(settings))
	return nil
}

func checkAxes(groups ...[]int) error {
	for _, axes := range groups {
		for _, a := range axes {
			if a < 0 || a > 2 {
				return fmt.Errorf("%w: axis %d", ErrMalformedExtension, a)
			}
		}
	}
	return nil
}

type worldGravityPayload struct {
	Gravity   *float64  `yaml:"gravity"`
	Direction []float64 `yaml:"direction"`
}

func importWorldGravity(ic *ImportContext, p worldGravityPayload) error {
	magnitude := standardGravity
	if p.Gravity != nil {
		magnitude = *p.Gravity
	}
	dir := common.Down3
	if p.Direction != nil {
		v, ok := common.Vec3From(p.Direction)
		if !ok || v.Length() == 0 {
			return fmt.Errorf("%w: gravity direction %v", ErrMalformedExtension, p.Direction)
		}
		dir = v.Normalized()
	}
	ic.scene.Physics.SetGravity(dir.Scale(magnitude))
	return nil
}

type shapeRefPayload struct {
	Shape int `yaml:"shape"`
}

// importNodeShape records the collider shape of a node. Physics bodies pick
// it up when the body extension names no collider of its own.
func importNodeShape(ic *ImportContext, node *document.Node, p shapeRefPayload) error {
	shape, err := lookupDefinition[component.Shape](ic, KeyShapes, p.Shape)
	if err != nil {
		return err
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.ColliderComponent.Kind(), &component.Collider{ShapeIndex: p.Shape, Shape: shape})
}

type bodyPayload struct {
	Motion   *motionPayload   `yaml:"motion"`
	Collider *colliderPayload `yaml:"collider"`
	Trigger  *triggerPayload  `yaml:"trigger"`
}

type motionPayload struct {
	Type            string    `yaml:"type"`
	Mass            *float64  `yaml:"mass"`
	LinearVelocity  []float64 `yaml:"linearVelocity"`
	AngularVelocity []float64 `yaml:"angularVelocity"`
	CenterOfMass    []float64 `yaml:"centerOfMass"`
	GravityFactor   *float64  `yaml:"gravityFactor"`
}

type colliderPayload struct {
	Shape           int  `yaml:"shape"`
	PhysicsMaterial *int `yaml:"physicsMaterial"`
	CollisionFilter *int `yaml:"collisionFilter"`
}

type triggerPayload struct {
	Shape *int  `yaml:"shape"`
	Nodes []int `yaml:"nodes"`
}

func importNodeBody(ic *ImportContext, node *document.Node, p bodyPayload) error {
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	world := ic.scene.World

	var body *component.Body
	if p.Motion != nil {
		body, err = buildBody(ic, node, *p.Motion)
		if err != nil {
			return err
		}
		if err := ecs.Add(world, h.Entity, component.BodyComponent.Kind(), body); err != nil {
			return err
		}
	}

	collider, err := resolveCollider(ic, h, p.Collider)
	if err != nil {
		return err
	}
	if collider != nil {
		if err := ecs.Add(world, h.Entity, component.ColliderComponent.Kind(), collider); err != nil {
			return err
		}
		if body != nil {
			return attachCollider(ic, h, body.CP, collider, common.Zero3, false)
		}
		idx := node.Index
		ic.PushDeferred(fmt.Sprintf("compound collider node %d", idx), func() error {
			return attachToAncestor(ic, idx, collider, false)
		})
	}

	if p.Trigger != nil {
		if err := importTrigger(ic, node, h, body, *p.Trigger); err != nil {
			return err
		}
	}
	return nil
}

func buildBody(ic *ImportContext, node *document.Node, m motionPayload) (*component.Body, error) {
	motion := component.MotionType(m.Type)
	switch motion {
	case component.MotionStatic, component.MotionKinematic, component.MotionDynamic:
	default:
		return nil, fmt.Errorf("%w: motion type %q", ErrMalformedExtension, m.Type)
	}

	body := &component.Body{Motion: motion, Mass: 1, GravityFactor: 1}
	if m.Mass != nil {
		body.Mass = *m.Mass
	}
	if m.GravityFactor != nil {
		body.GravityFactor = *m.GravityFactor
	}
	for _, v := range []struct {
		raw []float64
		dst *common.Vec3
	}{
		{m.LinearVelocity, &body.LinearVelocity},
		{m.AngularVelocity, &body.AngularVelocity},
		{m.CenterOfMass, &body.CenterOfMass},
	} {
		if v.raw == nil {
			continue
		}
		vec, ok := common.Vec3From(v.raw)
		if !ok {
			return nil, fmt.Errorf("%w: motion vector %v", ErrMalformedExtension, v.raw)
		}
		*v.dst = vec
	}

	pos, rot := ic.doc.WorldTransform(node.Index)
	body.CP = ic.scene.Physics.AddBody(physics.BodySpec{
		Motion:          body.Motion,
		Mass:            body.Mass,
		Position:        pos,
		Rotation:        rot,
		LinearVelocity:  body.LinearVelocity,
		AngularVelocity: body.AngularVelocity,
		GravityFactor:   body.GravityFactor,
	})
	return body, nil
}

// resolveCollider builds the collider named by the payload, falling back to
// a shape recorded by the node's shape extension.
func resolveCollider(ic *ImportContext, h *EntityHandle, p *colliderPayload) (*component.Collider, error) {
	if p == nil {
		existing, ok := ecs.Get(ic.scene.World, h.Entity, component.ColliderComponent.Kind())
		if !ok {
			return nil, nil
		}
		return existing, nil
	}

	shape, err := lookupDefinition[component.Shape](ic, KeyShapes, p.Shape)
	if err != nil {
		return nil, err
	}
	c := &component.Collider{ShapeIndex: p.Shape, Shape: shape, OwnerID: h.ID}
	if p.PhysicsMaterial != nil {
		mat, err := lookupDefinition[component.PhysicsMaterial](ic, KeyPhysicsMaterials, *p.PhysicsMaterial)
		if err != nil {
			return nil, err
		}
		c.Material = &mat
	}
	if p.CollisionFilter != nil {
		f, err := lookupDefinition[component.CollisionFilter](ic, KeyCollisionFilters, *p.CollisionFilter)
		if err != nil {
			return nil, err
		}
		c.Filter = &f
	}
	return c, nil
}

func attachCollider(ic *ImportContext, owner *EntityHandle, body *cp.Body, c *component.Collider, offset common.Vec3, sensor bool) error {
	s, err := ic.scene.Physics.AttachShape(body, c.Shape, offset, c.Material, c.Filter, sensor)
	if errors.Is(err, physics.ErrUnsupportedShape) {
		ic.Warnf("collider on %s: %v", owner.ID, err)
		return nil
	}
	if err != nil {
		return err
	}
	c.CPShape = s
	c.OwnerID = owner.ID
	return nil
}

// attachToAncestor attaches a collider on a body-less node to the nearest
// ancestor with a body. Without one the collider becomes static geometry.
func attachToAncestor(ic *ImportContext, index int, c *component.Collider, sensor bool) error {
	pos, _ := ic.doc.WorldTransform(index)
	seen := map[int]bool{index: true}
	for p := ic.doc.Parent(index); p >= 0 && !seen[p]; p = ic.doc.Parent(p) {
		seen[p] = true
		owner, ok := ic.EntityForNode(p)
		if !ok {
			continue
		}
		body, ok := ecs.Get(ic.scene.World, owner.Entity, component.BodyComponent.Kind())
		if !ok || body.CP == nil {
			continue
		}
		ownerPos, ownerRot := ic.doc.WorldTransform(p)
		offset := ownerRot.Conjugate().Rotate(pos.Sub(ownerPos))
		return attachCollider(ic, owner, body.CP, c, offset, sensor)
	}

	self, ok := ic.EntityForNode(index)
	if !ok {
		return fmt.Errorf("omi: node %d has no entity", index)
	}
	_, rot := ic.doc.WorldTransform(index)
	static := ic.scene.Physics.AddBody(physics.BodySpec{Motion: component.MotionStatic, Position: pos, Rotation: rot, GravityFactor: 1})
	return attachCollider(ic, self, static, c, common.Zero3, sensor)
}

func importTrigger(ic *ImportContext, node *document.Node, h *EntityHandle, body *component.Body, p triggerPayload) error {
	trigger := &component.Trigger{ShapeIndex: -1}
	if p.Shape != nil {
		shape, err := lookupDefinition[component.Shape](ic, KeyShapes, *p.Shape)
		if err != nil {
			return err
		}
		trigger.ShapeIndex = *p.Shape
		sensor := &component.Collider{ShapeIndex: *p.Shape, Shape: shape, OwnerID: h.ID}
		if body != nil {
			if err := attachCollider(ic, h, body.CP, sensor, common.Zero3, true); err != nil {
				return err
			}
		} else {
			idx := node.Index
			ic.PushDeferred(fmt.Sprintf("trigger shape node %d", idx), func() error {
				return attachToAncestor(ic, idx, sensor, true)
			})
		}
	}
	for _, n := range p.Nodes {
		if ic.doc.Node(n) == nil {
			return fmt.Errorf("%w: trigger node %d, have %d", ErrIndexOutOfRange, n, len(ic.doc.Nodes))
		}
	}
	trigger.Nodes = append([]int(nil), p.Nodes...)
	if err := ecs.Add(ic.scene.World, h.Entity, component.TriggerComponent.Kind(), trigger); err != nil {
		return err
	}
	if len(trigger.Nodes) > 0 {
		ic.PushDeferred(fmt.Sprintf("trigger members node %d", node.Index), func() error {
			for _, n := range trigger.Nodes {
				member, ok := ic.EntityForNode(n)
				if !ok {
					return fmt.Errorf("omi: trigger member node %d has no entity", n)
				}
				trigger.MemberIDs = append(trigger.MemberIDs, member.ID)
			}
			return nil
		})
	}
	return nil
}

type nodeJointPayload struct {
	Joint           int  `yaml:"joint"`
	ConnectedNode   *int `yaml:"connectedNode"`
	EnableCollision bool `yaml:"enableCollision"`
}

func importNodeJoint(ic *ImportContext, node *document.Node, p nodeJointPayload) error {
	settings, err := lookupDefinition[component.JointSettings](ic, KeyJointSettings, p.Joint)
	if err != nil {
		return err
	}
	connected := -1
	if p.ConnectedNode != nil {
		connected = *p.ConnectedNode
		if ic.doc.Node(connected) == nil {
			return fmt.Errorf("%w: connectedNode %d, have %d", ErrIndexOutOfRange, connected, len(ic.doc.Nodes))
		}
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	joint := &component.Joint{
		SettingsIndex:   p.Joint,
		Settings:        settings,
		ConnectedNode:   connected,
		EnableCollision: p.EnableCollision,
	}
	if err := ecs.Add(ic.scene.World, h.Entity, component.JointComponent.Kind(), joint); err != nil {
		return err
	}

	idx := node.Index
	ic.PushDeferred(fmt.Sprintf("joint node %d", idx), func() error {
		return connectJoint(ic, idx, joint)
	})
	return nil
}

// connectJoint runs once every node has an entity, so the connected node may
// appear anywhere in the document.
func connectJoint(ic *ImportContext, index int, joint *component.Joint) error {
	a := nearestBody(ic, index)
	if a == nil {
		return fmt.Errorf("omi: joint node %d has no body on itself or an ancestor", index)
	}
	var b *cp.Body
	if joint.ConnectedNode >= 0 {
		other, ok := ic.EntityForNode(joint.ConnectedNode)
		if !ok {
			return fmt.Errorf("omi: joint node %d: connected node %d has no entity", index, joint.ConnectedNode)
		}
		joint.ConnectedID = other.ID
		b = nearestBody(ic, joint.ConnectedNode)
	}
	constraints, err := ic.scene.Physics.Connect(a, b, joint.Settings, joint.EnableCollision)
	if err != nil {
		return err
	}
	joint.CP = constraints
	return nil
}

func nearestBody(ic *ImportContext, index int) *cp.Body {
	seen := map[int]bool{}
	for i := index; i >= 0 && !seen[i]; i = ic.doc.Parent(i) {
		seen[i] = true
		h, ok := ic.EntityForNode(i)
		if !ok {
			continue
		}
		if body, ok := ecs.Get(ic.scene.World, h.Entity, component.BodyComponent.Kind()); ok && body.CP != nil {
			return body.CP
		}
	}
	return nil
}

type gravityFieldPayload struct {
	Type        string              `yaml:"type"`
	Gravity     float64             `yaml:"gravity"`
	Priority    int                 `yaml:"priority"`
	Replace     bool                `yaml:"replace"`
	Stop        bool                `yaml:"stop"`
	Directional *directionalPayload `yaml:"directional"`
}

type directionalPayload struct {
	Direction []float64 `yaml:"direction"`
}

func importNodeGravity(ic *ImportContext, node *document.Node, p gravityFieldPayload) error {
	switch p.Type {
	case "directional", "point", "disc", "torus", "line", "shaped":
	default:
		return fmt.Errorf("%w: gravity type %q", ErrMalformedExtension, p.Type)
	}
	field := &component.GravityField{
		Type:     p.Type,
		Gravity:  p.Gravity,
		Priority: p.Priority,
		Replace:  p.Replace,
		Stop:     p.Stop,
	}
	if p.Type == "directional" {
		field.Direction = common.Down3
		if p.Directional != nil && p.Directional.Direction != nil {
			v, ok := common.Vec3From(p.Directional.Direction)
			if !ok || v.Length() == 0 {
				return fmt.Errorf("%w: gravity direction %v", ErrMalformedExtension, p.Directional.Direction)
			}
			field.Direction = v.Normalized()
		}
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.GravityFieldComponent.Kind(), field)
}
