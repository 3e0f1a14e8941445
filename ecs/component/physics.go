package component

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/omiloader/common"
)

type ShapeType string

const (
	ShapeBox      ShapeType = "box"
	ShapeSphere   ShapeType = "sphere"
	ShapeCapsule  ShapeType = "capsule"
	ShapeCylinder ShapeType = "cylinder"
	ShapeConvex   ShapeType = "convex"
	ShapeTrimesh  ShapeType = "trimesh"
)

// Shape is one document-level physics shape definition.
type Shape struct {
	Type   ShapeType
	Size   common.Vec3
	Radius float64
	Height float64
	Mesh   int
}

type PhysicsMaterial struct {
	StaticFriction     float64
	DynamicFriction    float64
	Restitution        float64
	FrictionCombine    string
	RestitutionCombine string
}

type CollisionFilter struct {
	CollisionSystems      []string
	CollideWithSystems    []string
	NotCollideWithSystems []string
}

type Collider struct {
	ShapeIndex int
	Shape      Shape
	Material   *PhysicsMaterial
	Filter     *CollisionFilter
	// OwnerID is the directory id of the entity whose body carries this collider.
	OwnerID string
	CPShape *cp.Shape
}

var ColliderComponent = NewComponent[Collider]("collider", "shape")

type MotionType string

const (
	MotionStatic    MotionType = "static"
	MotionKinematic MotionType = "kinematic"
	MotionDynamic   MotionType = "dynamic"
)

type Body struct {
	Motion          MotionType
	Mass            float64
	LinearVelocity  common.Vec3
	AngularVelocity common.Vec3
	CenterOfMass    common.Vec3
	GravityFactor   float64
	CP              *cp.Body
}

var BodyComponent = NewComponent[Body]("body")

// Trigger is a sensor volume; Nodes lists compound trigger children.
type Trigger struct {
	ShapeIndex int
	Nodes      []int
	MemberIDs  []string
}

var TriggerComponent = NewComponent[Trigger]("trigger")

type JointLimit struct {
	LinearAxes  []int
	AngularAxes []int
	Min         *float64
	Max         *float64
	Stiffness   float64
	Damping     float64
}

type JointDrive struct {
	Type           string
	Mode           string
	Axis           int
	MaxForce       float64
	PositionTarget float64
	VelocityTarget float64
	Stiffness      float64
	Damping        float64
}

type JointSettings struct {
	Limits []JointLimit
	Drives []JointDrive
}

type Joint struct {
	SettingsIndex   int
	Settings        JointSettings
	ConnectedNode   int
	ConnectedID     string
	EnableCollision bool
	CP              []*cp.Constraint
}

var JointComponent = NewComponent[Joint]("joint")

// GravityField is a node-scoped gravity volume.
type GravityField struct {
	Type      string
	Gravity   float64
	Priority  int
	Replace   bool
	Stop      bool
	Direction common.Vec3
}

var GravityFieldComponent = NewComponent[GravityField]("gravity_field", "gravity")
