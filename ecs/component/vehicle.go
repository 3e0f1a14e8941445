package component

import "github.com/milk9111/omiloader/common"

type Vehicle struct {
	AngularActivation common.Vec3
	LinearActivation  common.Vec3
	GyroTorque        common.Vec3
	MaxSpeed          float64
	AngularDampeners  bool
	LinearDampeners   bool
	UseThrottle       bool
	// PilotSeatNode is -1 when the vehicle names no seat.
	PilotSeatNode int
	PilotSeatID   string
}

var VehicleComponent = NewComponent[Vehicle]("vehicle")

type WheelSettings struct {
	CurrentForceRatio            float64
	CurrentSteeringRatio         float64
	MaxForce                     float64
	MaxSteeringAngle             float64
	Radius                       float64
	Width                        float64
	SuspensionDampingCompression float64
	SuspensionDampingRebound     float64
	SuspensionStiffness          float64
	SuspensionTravel             float64
}

type Wheel struct {
	Index    int
	Settings WheelSettings
}

var WheelComponent = NewComponent[Wheel]("wheel")

type ThrusterSettings struct {
	CurrentForceRatio  float64
	CurrentGimbalRatio [2]float64
	MaxForce           float64
	MaxGimbal          float64
}

type Thruster struct {
	Index    int
	Settings ThrusterSettings
}

var ThrusterComponent = NewComponent[Thruster]("thruster")

type Seat struct {
	Back  common.Vec3
	Foot  common.Vec3
	Knee  common.Vec3
	Angle float64
}

var SeatComponent = NewComponent[Seat]("seat")
