package omi

import (
	"math"
	"testing"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs/component"
)

func testNode(index int, children []int, kinds ...Kind) *document.Node {
	n := &document.Node{
		Index:    index,
		Children: children,
		Rotation: common.IdentityQuat,
		Scale:    common.One3,
	}
	for _, k := range kinds {
		n.Extensions = append(n.Extensions, document.Extension{Name: k.String(), Raw: map[string]any{}})
	}
	return n
}

func rotated(n *document.Node, axis common.Vec3, degrees float64) *document.Node {
	n.Rotation = common.QuatFromAxisAngle(axis, degrees*math.Pi/180)
	return n
}

func TestClassifyVehicles(t *testing.T) {
	xAxis := common.Vec3{X: 1}
	cases := []struct {
		name  string
		nodes []*document.Node
		want  component.Archetype
	}{
		{
			name: "wheel_and_level_thruster",
			nodes: []*document.Node{
				testNode(0, []int{1, 2}, KindVehicleBody),
				testNode(1, nil, KindVehicleWheel),
				testNode(2, nil, KindVehicleThruster),
			},
			want: component.ArchetypeAutomobile,
		},
		{
			name: "vertical_thruster_overrides_wheel",
			nodes: []*document.Node{
				testNode(0, []int{1, 2}, KindVehicleBody),
				testNode(1, nil, KindVehicleWheel),
				rotated(testNode(2, nil, KindVehicleThruster), xAxis, 90),
			},
			want: component.ArchetypeAirplane,
		},
		{
			name: "tilted_thruster_below_threshold",
			nodes: []*document.Node{
				testNode(0, []int{1, 2}, KindVehicleBody),
				testNode(1, nil, KindVehicleWheel),
				rotated(testNode(2, nil, KindVehicleThruster), xAxis, 30),
			},
			want: component.ArchetypeAutomobile,
		},
		{
			name: "glider",
			nodes: []*document.Node{
				testNode(0, nil, KindVehicleBody),
			},
			want: component.ArchetypeAirplane,
		},
		{
			name: "level_thruster_without_wheels",
			nodes: []*document.Node{
				testNode(0, []int{1}, KindVehicleBody),
				testNode(1, nil, KindVehicleThruster),
			},
			want: component.ArchetypeAirplane,
		},
		{
			name: "nested_wheel",
			nodes: []*document.Node{
				testNode(0, []int{1}, KindVehicleBody),
				testNode(1, []int{2}),
				testNode(2, nil, KindVehicleWheel),
			},
			want: component.ArchetypeAutomobile,
		},
		{
			name: "nested_vertical_thruster",
			nodes: []*document.Node{
				testNode(0, []int{1, 3}, KindVehicleBody),
				testNode(1, []int{2}),
				rotated(testNode(2, nil, KindVehicleThruster), xAxis, -80),
				testNode(3, nil, KindVehicleWheel),
			},
			want: component.ArchetypeAirplane,
		},
		{
			name: "cycle_terminates",
			nodes: []*document.Node{
				testNode(0, []int{1}, KindVehicleBody),
				testNode(1, []int{0, 2}),
				testNode(2, []int{1}, KindVehicleWheel),
			},
			want: component.ArchetypeAutomobile,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := &document.Document{Nodes: c.nodes}
			if got := Classify(doc, nil, 0); got != c.want {
				t.Fatalf("Classify = %s, want %s", got, c.want)
			}
		})
	}
}

func TestClassifyOtherArchetypes(t *testing.T) {
	geometry := &document.Visual{HasGeometry: true}
	cases := []struct {
		name   string
		node   *document.Node
		visual *document.Visual
		want   component.Archetype
	}{
		{"personality_beats_geometry", testNode(0, nil, KindPersonality), geometry, component.ArchetypeCharacter},
		{"character_controller", testNode(0, nil), &document.Visual{CharacterController: true}, component.ArchetypeCharacter},
		{"khr_audio", testNode(0, nil, KindKHRAudioEmitter), geometry, component.ArchetypeAudio},
		{"omi_audio", testNode(0, nil, KindAudioEmitter), nil, component.ArchetypeAudio},
		{"geometry", testNode(0, nil, KindLink), geometry, component.ArchetypeMesh},
		{"empty", testNode(0, nil), nil, component.ArchetypeContainer},
		{"seat_only", testNode(0, nil, KindSeat), &document.Visual{}, component.ArchetypeContainer},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := &document.Document{Nodes: []*document.Node{c.node}}
			if got := Classify(doc, c.visual, 0); got != c.want {
				t.Fatalf("Classify = %s, want %s", got, c.want)
			}
		})
	}

	if got := Classify(&document.Document{}, nil, 4); got != component.ArchetypeContainer {
		t.Fatalf("out of range node = %s, want container", got)
	}
}

func TestDescendantsWithKeepsDepthFirstOrder(t *testing.T) {
	doc := &document.Document{Nodes: []*document.Node{
		testNode(0, []int{1, 3}),
		testNode(1, []int{2}, KindVehicleWheel),
		testNode(2, nil, KindVehicleWheel),
		testNode(3, nil, KindVehicleWheel),
	}}
	got := descendantsWith(doc, 0, KindVehicleWheel)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("descendantsWith = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descendantsWith = %v, want %v", got, want)
		}
	}
}
