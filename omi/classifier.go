package omi

import (
	"fmt"
	"math"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
)

// verticalThreshold is the |y| a thruster's forward axis must exceed to
// count as lift, roughly a 45 degree cone around vertical.
const verticalThreshold = 0.7

// Classify picks the archetype of a node. The first matching rule wins:
// vehicle bodies become Airplane or Automobile, then personality or a
// character controller gives Character, audio emitters give Audio, geometry
// gives Mesh, and anything else is a Container.
func Classify(doc *document.Document, visual *document.Visual, index int) component.Archetype {
	node := doc.Node(index)
	if node == nil {
		return component.ArchetypeContainer
	}

	if node.HasExtension(KindVehicleBody.String()) {
		if hasVerticalThruster(doc, index) || len(descendantsWith(doc, index, KindVehicleWheel)) == 0 {
			return component.ArchetypeAirplane
		}
		return component.ArchetypeAutomobile
	}

	if node.HasExtension(KindPersonality.String()) || (visual != nil && visual.CharacterController) {
		return component.ArchetypeCharacter
	}

	if node.HasExtension(KindAudioEmitter.String()) || node.HasExtension(KindKHRAudioEmitter.String()) {
		return component.ArchetypeAudio
	}

	if visual != nil && visual.HasGeometry {
		return component.ArchetypeMesh
	}
	return component.ArchetypeContainer
}

func hasVerticalThruster(doc *document.Document, root int) bool {
	for _, i := range descendantsWith(doc, root, KindVehicleThruster) {
		if isVertical(doc.Node(i).Rotation) {
			return true
		}
	}
	return false
}

func isVertical(rotation common.Quat) bool {
	if rotation.IsZero() {
		rotation = common.IdentityQuat
	}
	forward := rotation.Rotate(common.Forward3)
	return math.Abs(forward.Y) > verticalThreshold
}

// descendantsWith walks the subtree under root with an explicit stack and
// returns the nodes carrying kind, in depth-first order. Nodes already seen
// are skipped, so a malformed graph with a cycle still terminates.
func descendantsWith(doc *document.Document, root int, kind Kind) []int {
	start := doc.Node(root)
	if start == nil {
		return nil
	}
	name := kind.String()
	visited := map[int]bool{root: true}

	stack := make([]int, 0, len(start.Children))
	for i := len(start.Children) - 1; i >= 0; i-- {
		stack = append(stack, start.Children[i])
	}

	var out []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		n := doc.Node(cur)
		if n == nil {
			continue
		}
		if n.HasExtension(name) {
			out = append(out, cur)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if !visited[n.Children[i]] {
				stack = append(stack, n.Children[i])
			}
		}
	}
	return out
}

// createEntity classifies a node, creates its entity, registers it in the
// world directory and builds its script wrapper.
func (ic *ImportContext) createEntity(index int) (*EntityHandle, error) {
	node := ic.doc.Node(index)
	visual := ic.Visual(index)
	archetype := Classify(ic.doc, visual, index)

	world := ic.scene.World
	e := world.CreateEntity()
	id := uniqueID(world, node)
	if err := world.RegisterEntity(e, id); err != nil {
		world.DestroyEntity(e)
		return nil, fmt.Errorf("omi: register entity for node %d: %w", index, err)
	}

	if err := attachComponents(ic, e, index, archetype); err != nil {
		// Leave no half-built entity behind; a later attempt must be able
		// to claim the same id.
		world.DestroyEntity(e)
		return nil, fmt.Errorf("omi: components for node %d: %w", index, err)
	}

	wrapper := ic.scene.Wrappers.GetOrCreate(world, e, archetype)
	if wrapper == nil {
		ic.Warnf("node %d (%s): no script wrapper", index, id)
	}

	tag, _ := node.Extras["tag"].(string)
	return &EntityHandle{
		ID:        id,
		Entity:    e,
		Tag:       tag,
		Success:   wrapper != nil,
		NodeIndex: index,
		Archetype: archetype,
		Wrapper:   wrapper,
	}, nil
}

// attachComponents adds what every node entity carries. It is a variable
// so tests can make attachment fail.
var attachComponents = func(ic *ImportContext, e ecs.Entity, index int, archetype component.Archetype) error {
	world := ic.scene.World
	node := ic.doc.Node(index)
	visual := ic.Visual(index)

	pos, rot := ic.doc.WorldTransform(index)
	if err := ecs.Add(world, e, component.TransformComponent.Kind(), &component.Transform{Position: pos, Rotation: rot, Scale: node.Scale}); err != nil {
		return err
	}
	if err := ecs.Add(world, e, component.OriginComponent.Kind(), &component.Origin{NodeIndex: index, Name: node.Name}); err != nil {
		return err
	}
	if err := ecs.Add(world, e, component.ArchetypeComponent.Kind(), &component.ArchetypeTag{Archetype: archetype}); err != nil {
		return err
	}
	if visual != nil && visual.HasGeometry {
		if err := ecs.Add(world, e, component.RenderableComponent.Kind(), &component.Renderable{MeshIndex: visual.MeshIndex}); err != nil {
			return err
		}
	}
	if archetype == component.ArchetypeCharacter {
		return ecs.Add(world, e, component.CharacterControllerComponent.Kind(), &component.CharacterController{Enabled: true})
	}
	return nil
}

// uniqueID is the node name, or node_<index> when unnamed, with a numeric
// suffix when the id is already taken.
func uniqueID(world *ecs.World, node *document.Node) string {
	base := node.Name
	if base == "" {
		base = fmt.Sprintf("node_%d", node.Index)
	}
	id := base
	for n := 1; ; n++ {
		if _, taken := world.FindEntity(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}
