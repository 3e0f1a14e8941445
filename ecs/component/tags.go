package component

// Archetype is the entity category picked by the classifier.
type Archetype int

const (
	ArchetypeContainer Archetype = iota
	ArchetypeMesh
	ArchetypeAutomobile
	ArchetypeAirplane
	ArchetypeCharacter
	ArchetypeAudio
)

func (a Archetype) String() string {
	switch a {
	case ArchetypeContainer:
		return "container"
	case ArchetypeMesh:
		return "mesh"
	case ArchetypeAutomobile:
		return "automobile"
	case ArchetypeAirplane:
		return "airplane"
	case ArchetypeCharacter:
		return "character"
	case ArchetypeAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// IsVehicle reports whether the archetype is driven by a vehicle body.
func (a Archetype) IsVehicle() bool {
	return a == ArchetypeAutomobile || a == ArchetypeAirplane
}

type ArchetypeTag struct {
	Archetype Archetype
}

var ArchetypeComponent = NewComponent[ArchetypeTag]("archetype")

// Origin links an entity back to the document node it came from.
type Origin struct {
	NodeIndex int
	Name      string
}

var OriginComponent = NewComponent[Origin]("origin")

// Renderable marks attached geometry. Realizing it is left to a renderer.
type Renderable struct {
	MeshIndex int
}

var RenderableComponent = NewComponent[Renderable]("renderable", "mesh")

type CharacterController struct {
	Enabled bool
}

var CharacterControllerComponent = NewComponent[CharacterController]("character_controller")
