package omi

import (
	"fmt"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
)

const (
	KeyWheels    = "omi.wheels"
	KeyThrusters = "omi.thrusters"
)

type wheelsPayload struct {
	Wheels []wheelPayload `yaml:"wheels"`
}

type wheelPayload struct {
	CurrentForceRatio            float64  `yaml:"currentForceRatio"`
	CurrentSteeringRatio         float64  `yaml:"currentSteeringRatio"`
	MaxForce                     float64  `yaml:"maxForce"`
	MaxSteeringAngle             float64  `yaml:"maxSteeringAngle"`
	Radius                       *float64 `yaml:"radius"`
	Width                        *float64 `yaml:"width"`
	SuspensionDampingCompression *float64 `yaml:"suspensionDampingCompression"`
	SuspensionDampingRebound     *float64 `yaml:"suspensionDampingRebound"`
	SuspensionStiffness          *float64 `yaml:"suspensionStiffness"`
	SuspensionTravel             *float64 `yaml:"suspensionTravel"`
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func importWheels(ic *ImportContext, p wheelsPayload) error {
	wheels := make([]component.WheelSettings, len(p.Wheels))
	for i, w := range p.Wheels {
		wheels[i] = component.WheelSettings{
			CurrentForceRatio:            w.CurrentForceRatio,
			CurrentSteeringRatio:         w.CurrentSteeringRatio,
			MaxForce:                     w.MaxForce,
			MaxSteeringAngle:             w.MaxSteeringAngle,
			Radius:                       floatOr(w.Radius, 0.25),
			Width:                        floatOr(w.Width, 0.125),
			SuspensionDampingCompression: floatOr(w.SuspensionDampingCompression, 2),
			SuspensionDampingRebound:     floatOr(w.SuspensionDampingRebound, 2),
			SuspensionStiffness:          floatOr(w.SuspensionStiffness, 20),
			SuspensionTravel:             floatOr(w.SuspensionTravel, 0.25),
		}
	}
	ic.SetData(KeyWheels, wheels)
	ic.logger.Printf("Importer: %d wheel settings", len(wheels))
	return nil
}

type thrustersPayload struct {
	Thrusters []thrusterPayload `yaml:"thrusters"`
}

type thrusterPayload struct {
	CurrentForceRatio  float64   `yaml:"currentForceRatio"`
	CurrentGimbalRatio []float64 `yaml:"currentGimbalRatio"`
	MaxForce           float64   `yaml:"maxForce"`
	MaxGimbal          float64   `yaml:"maxGimbal"`
}

func importThrusters(ic *ImportContext, p thrustersPayload) error {
	thrusters := make([]component.ThrusterSettings, len(p.Thrusters))
	for i, t := range p.Thrusters {
		s := component.ThrusterSettings{
			CurrentForceRatio: t.CurrentForceRatio,
			MaxForce:          t.MaxForce,
			MaxGimbal:         t.MaxGimbal,
		}
		switch len(t.CurrentGimbalRatio) {
		case 0:
		case 2:
			s.CurrentGimbalRatio = [2]float64{t.CurrentGimbalRatio[0], t.CurrentGimbalRatio[1]}
		default:
			ic.Warnf("thruster %d: currentGimbalRatio needs 2 values, got %d", i, len(t.CurrentGimbalRatio))
		}
		thrusters[i] = s
	}
	ic.SetData(KeyThrusters, thrusters)
	ic.logger.Printf("Importer: %d thruster settings", len(thrusters))
	return nil
}

type vehicleBodyPayload struct {
	AngularActivation []float64 `yaml:"angularActivation"`
	LinearActivation  []float64 `yaml:"linearActivation"`
	GyroTorque        []float64 `yaml:"gyroTorque"`
	MaxSpeed          *float64  `yaml:"maxSpeed"`
	PilotSeat         *int      `yaml:"pilotSeat"`
	AngularDampeners  *bool     `yaml:"angularDampeners"`
	LinearDampeners   bool      `yaml:"linearDampeners"`
	UseThrottle       bool      `yaml:"useThrottle"`
}

func importVehicleBody(ic *ImportContext, node *document.Node, p vehicleBodyPayload) error {
	v := &component.Vehicle{
		MaxSpeed:         -1,
		AngularDampeners: true,
		LinearDampeners:  p.LinearDampeners,
		UseThrottle:      p.UseThrottle,
		PilotSeatNode:    -1,
	}
	if p.MaxSpeed != nil {
		v.MaxSpeed = *p.MaxSpeed
	}
	if p.AngularDampeners != nil {
		v.AngularDampeners = *p.AngularDampeners
	}
	for _, f := range []struct {
		name string
		raw  []float64
		dst  *common.Vec3
	}{
		{"angularActivation", p.AngularActivation, &v.AngularActivation},
		{"linearActivation", p.LinearActivation, &v.LinearActivation},
		{"gyroTorque", p.GyroTorque, &v.GyroTorque},
	} {
		if f.raw == nil {
			continue
		}
		vec, ok := common.Vec3From(f.raw)
		if !ok {
			return fmt.Errorf("%w: %s needs 3 values", ErrMalformedExtension, f.name)
		}
		*f.dst = vec
	}
	if p.PilotSeat != nil {
		if ic.doc.Node(*p.PilotSeat) == nil {
			return fmt.Errorf("%w: pilotSeat %d, have %d", ErrIndexOutOfRange, *p.PilotSeat, len(ic.doc.Nodes))
		}
		v.PilotSeatNode = *p.PilotSeat
	}

	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	if err := ecs.Add(ic.scene.World, h.Entity, component.VehicleComponent.Kind(), v); err != nil {
		return err
	}

	if v.PilotSeatNode >= 0 {
		// The seat is usually a later sibling or a child, so it is resolved
		// once every node has an entity.
		ic.PushDeferred(fmt.Sprintf("pilot seat node %d", node.Index), func() error {
			return resolvePilotSeat(ic, h, v)
		})
	}
	return nil
}

func resolvePilotSeat(ic *ImportContext, vehicle *EntityHandle, v *component.Vehicle) error {
	seat, ok := ic.EntityForNode(v.PilotSeatNode)
	if !ok {
		return fmt.Errorf("omi: vehicle %s: pilot seat node %d has no entity", vehicle.ID, v.PilotSeatNode)
	}
	if !ecs.Has(ic.scene.World, seat.Entity, component.SeatComponent.Kind()) {
		return fmt.Errorf("omi: vehicle %s: pilot seat %s is not a seat", vehicle.ID, seat.ID)
	}
	v.PilotSeatID = seat.ID
	ic.logger.Printf("Importer: vehicle %s pilot seat %s", vehicle.ID, seat.ID)
	return nil
}

type wheelRefPayload struct {
	Wheel int `yaml:"wheel"`
}

func importNodeWheel(ic *ImportContext, node *document.Node, p wheelRefPayload) error {
	settings, err := lookupDefinition[component.WheelSettings](ic, KeyWheels, p.Wheel)
	if err != nil {
		return err
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.WheelComponent.Kind(), &component.Wheel{Index: p.Wheel, Settings: settings})
}

type thrusterRefPayload struct {
	Thruster int `yaml:"thruster"`
}

func importNodeThruster(ic *ImportContext, node *document.Node, p thrusterRefPayload) error {
	settings, err := lookupDefinition[component.ThrusterSettings](ic, KeyThrusters, p.Thruster)
	if err != nil {
		return err
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.ThrusterComponent.Kind(), &component.Thruster{Index: p.Thruster, Settings: settings})
}
