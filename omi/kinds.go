package omi

// Kind is the closed set of extensions the importer understands. Names that
// are not listed map to KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	KindPhysicsShape
	KindPhysicsBody
	KindPhysicsJoint
	KindPhysicsGravity
	KindEnvironmentSky
	KindAudioEmitter
	KindKHRAudioEmitter
	KindVehicleBody
	KindVehicleWheel
	KindVehicleThruster
	KindSeat
	KindLink
	KindSpawnPoint
	KindPersonality
)

var kindNames = map[Kind]string{
	KindPhysicsShape:    "OMI_physics_shape",
	KindPhysicsBody:     "OMI_physics_body",
	KindPhysicsJoint:    "OMI_physics_joint",
	KindPhysicsGravity:  "OMI_physics_gravity",
	KindEnvironmentSky:  "OMI_environment_sky",
	KindAudioEmitter:    "OMI_audio_emitter",
	KindKHRAudioEmitter: "KHR_audio_emitter",
	KindVehicleBody:     "OMI_vehicle_body",
	KindVehicleWheel:    "OMI_vehicle_wheel",
	KindVehicleThruster: "OMI_vehicle_thruster",
	KindSeat:            "OMI_seat",
	KindLink:            "OMI_link",
	KindSpawnPoint:      "OMI_spawn_point",
	KindPersonality:     "OMI_personality",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		out[name] = k
	}
	return out
}()

func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether k is one of the listed extensions.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// nodeDispatchOrder lists the node-level kinds whose handlers depend on each
// other. They always run first, in this order; everything else follows in
// the order the node lists it.
var nodeDispatchOrder = []Kind{
	KindPhysicsShape,
	KindPhysicsBody,
	KindPhysicsJoint,
	KindVehicleBody,
	KindVehicleWheel,
	KindVehicleThruster,
	KindSeat,
}

const (
	PriorityShapes  = 100
	PriorityBodies  = 99
	PriorityJoints  = 98
	PriorityGravity = 97
	PriorityDefault = 90
)
