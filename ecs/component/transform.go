package component

import "github.com/milk9111/omiloader/common"

// Transform is the node's world-space placement at import time.
type Transform struct {
	Position common.Vec3
	Rotation common.Quat
	Scale    common.Vec3
}

var TransformComponent = NewComponent[Transform]("transform")
