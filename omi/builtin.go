package omi

import "log"

// DefaultRegistry returns a registry holding every built-in handler.
func DefaultRegistry(logger *log.Logger) *Registry {
	r := NewRegistry(logger)

	r.RegisterDocument(DocumentFunc(KindPhysicsShape, PriorityShapes, importShapes))
	r.RegisterDocument(DocumentFunc(KindPhysicsBody, PriorityBodies, importBodies))
	r.RegisterDocument(DocumentFunc(KindPhysicsJoint, PriorityJoints, importJoints))
	r.RegisterDocument(DocumentFunc(KindPhysicsGravity, PriorityGravity, importWorldGravity))
	r.RegisterDocument(DocumentFunc(KindEnvironmentSky, PriorityDefault, importSkies))
	r.RegisterDocument(DocumentFunc(KindKHRAudioEmitter, PriorityDefault, importKHRAudio))
	r.RegisterDocument(DocumentFunc(KindAudioEmitter, PriorityDefault, importOMIAudio))
	r.RegisterDocument(DocumentFunc(KindVehicleWheel, PriorityDefault, importWheels))
	r.RegisterDocument(DocumentFunc(KindVehicleThruster, PriorityDefault, importThrusters))

	r.RegisterNode(NodeFunc(KindPhysicsShape, PriorityShapes, importNodeShape))
	r.RegisterNode(NodeFunc(KindPhysicsBody, PriorityBodies, importNodeBody))
	r.RegisterNode(NodeFunc(KindPhysicsJoint, PriorityJoints, importNodeJoint))
	r.RegisterNode(NodeFunc(KindPhysicsGravity, PriorityGravity, importNodeGravity))
	r.RegisterNode(NodeFunc(KindVehicleBody, PriorityDefault, importVehicleBody))
	r.RegisterNode(NodeFunc(KindVehicleWheel, PriorityDefault, importNodeWheel))
	r.RegisterNode(NodeFunc(KindVehicleThruster, PriorityDefault, importNodeThruster))
	r.RegisterNode(NodeFunc(KindSeat, PriorityDefault, importSeat))
	r.RegisterNode(NodeFunc(KindLink, PriorityDefault, importLink))
	r.RegisterNode(NodeFunc(KindSpawnPoint, PriorityDefault, importSpawnPoint))
	r.RegisterNode(NodeFunc(KindPersonality, PriorityDefault, importPersonality))
	r.RegisterNode(NodeFunc(KindKHRAudioEmitter, PriorityDefault, nodeAudio(KindKHRAudioEmitter)))
	r.RegisterNode(NodeFunc(KindAudioEmitter, PriorityDefault, nodeAudio(KindAudioEmitter)))

	return r
}
