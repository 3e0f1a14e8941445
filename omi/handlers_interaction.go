package omi

import (
	"fmt"
	"math"
	"strings"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
)

type seatPayload struct {
	Back  []float64 `yaml:"back"`
	Foot  []float64 `yaml:"foot"`
	Knee  []float64 `yaml:"knee"`
	Angle *float64  `yaml:"angle"`
}

func importSeat(ic *ImportContext, node *document.Node, p seatPayload) error {
	seat := &component.Seat{Angle: math.Pi / 2}
	if p.Angle != nil {
		seat.Angle = *p.Angle
	}
	for _, f := range []struct {
		name string
		raw  []float64
		dst  *common.Vec3
	}{
		{"back", p.Back, &seat.Back},
		{"foot", p.Foot, &seat.Foot},
		{"knee", p.Knee, &seat.Knee},
	} {
		v, ok := common.Vec3From(f.raw)
		if !ok {
			return fmt.Errorf("%w: seat %s needs 3 values", ErrMalformedExtension, f.name)
		}
		*f.dst = v
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.SeatComponent.Kind(), seat)
}

type linkPayload struct {
	URI   string `yaml:"uri"`
	Title string `yaml:"title"`
}

func importLink(ic *ImportContext, node *document.Node, p linkPayload) error {
	uri := strings.TrimSpace(p.URI)
	if uri == "" {
		return fmt.Errorf("%w: link without uri", ErrMalformedExtension)
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.LinkComponent.Kind(), &component.Link{URI: uri, Title: p.Title})
}

type spawnPointPayload struct {
	Title string `yaml:"title"`
	Team  string `yaml:"team"`
	Group string `yaml:"group"`
}

// importSpawnPoint registers the node's world placement with the scene's
// spawn registry.
func importSpawnPoint(ic *ImportContext, node *document.Node, p spawnPointPayload) error {
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	if err := ecs.Add(ic.scene.World, h.Entity, component.SpawnPointComponent.Kind(), &component.SpawnPoint{Title: p.Title, Team: p.Team, Group: p.Group}); err != nil {
		return err
	}
	pos, rot := ic.doc.WorldTransform(node.Index)
	ic.scene.Spawns.RegisterNode(node.Index, pos, rot, p.Title, p.Team, p.Group)
	return nil
}

type personalityPayload struct {
	Agent          string `yaml:"agent"`
	Personality    string `yaml:"personality"`
	DefaultMessage string `yaml:"defaultMessage"`
}

func importPersonality(ic *ImportContext, node *document.Node, p personalityPayload) error {
	if strings.TrimSpace(p.Agent) == "" {
		return fmt.Errorf("%w: personality without agent", ErrMalformedExtension)
	}
	h, err := ic.GetOrCreateEntity(node.Index)
	if err != nil {
		return err
	}
	return ecs.Add(ic.scene.World, h.Entity, component.PersonalityComponent.Kind(), &component.Personality{
		Agent:          p.Agent,
		Personality:    p.Personality,
		DefaultMessage: p.DefaultMessage,
	})
}
