// Package document parses glTF 2.0 scene descriptions (JSON or GLB) into a
// node tree with ordered per-node extension data and per-node visual objects.
package document

import (
	"errors"

	"github.com/milk9111/omiloader/common"
)

var (
	ErrMalformed          = errors.New("document: malformed")
	ErrUnsupportedVersion = errors.New("document: unsupported asset version")
	ErrIndexOutOfRange    = errors.New("document: index out of range")
)

// Extension is one named extension block, kept in the order it was written.
type Extension struct {
	Name string
	Raw  any
}

type Asset struct {
	Version   string
	Generator string
	Extras    map[string]any
}

type Scene struct {
	Name       string
	Nodes      []int
	Extensions []Extension
}

type Node struct {
	Index       int
	Name        string
	Children    []int
	Translation common.Vec3
	Rotation    common.Quat
	Scale       common.Vec3
	Mesh        *int
	Extensions  []Extension
	Extras      map[string]any
}

// Extension returns the raw data for name, if the node carries it.
func (n *Node) Extension(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	for _, ext := range n.Extensions {
		if ext.Name == name {
			return ext.Raw, true
		}
	}
	return nil, false
}

func (n *Node) HasExtension(name string) bool {
	_, ok := n.Extension(name)
	return ok
}

// Visual is the instantiated visual object for one node.
type Visual struct {
	NodeIndex           int
	HasGeometry         bool
	MeshIndex           int
	CharacterController bool
}

type Image struct {
	URI        string
	MimeType   string
	BufferView *int
}

type Texture struct {
	Source *int
}

type BufferView struct {
	Buffer     int
	ByteOffset int
	ByteLength int
}

type Buffer struct {
	URI        string
	ByteLength int
}

type Document struct {
	Asset          Asset
	Scene          int
	Scenes         []Scene
	Nodes          []*Node
	Extensions     []Extension
	ExtensionsUsed []string
	Images         []Image
	Textures       []Texture
	BufferViews    []BufferView
	Buffers        []Buffer

	// BaseDir resolves relative resource URIs. Empty disables file lookups.
	BaseDir string

	binChunk []byte
	parents  []int
}

// Extension returns the document-level extension data for name.
func (d *Document) Extension(name string) (any, bool) {
	if d == nil {
		return nil, false
	}
	for _, ext := range d.Extensions {
		if ext.Name == name {
			return ext.Raw, true
		}
	}
	return nil, false
}

// Node returns the node at index or nil when out of range.
func (d *Document) Node(index int) *Node {
	if d == nil || index < 0 || index >= len(d.Nodes) {
		return nil
	}
	return d.Nodes[index]
}

// Parent returns the parent index of a node, or -1 for roots.
func (d *Document) Parent(index int) int {
	if d == nil || index < 0 || index >= len(d.parents) {
		return -1
	}
	return d.parents[index]
}

// DefaultScene returns the selected scene, or nil when the document has none.
func (d *Document) DefaultScene() *Scene {
	if d == nil || d.Scene < 0 || d.Scene >= len(d.Scenes) {
		return nil
	}
	return &d.Scenes[d.Scene]
}

// Title is asset.extras.title, falling back to the default scene name.
func (d *Document) Title() string {
	if d == nil {
		return ""
	}
	if t, ok := d.Asset.Extras["title"].(string); ok && t != "" {
		return t
	}
	if s := d.DefaultScene(); s != nil {
		return s.Name
	}
	return ""
}

// WorldTransform composes local transforms from the root down to index.
// A parent chain that loops back on itself stops at the repeated node.
func (d *Document) WorldTransform(index int) (common.Vec3, common.Quat) {
	n := d.Node(index)
	if n == nil {
		return common.Vec3{}, common.IdentityQuat
	}

	chain := []int{index}
	seen := map[int]bool{index: true}
	for p := d.Parent(index); p >= 0 && !seen[p]; p = d.Parent(p) {
		seen[p] = true
		chain = append(chain, p)
	}

	pos := common.Vec3{}
	rot := common.IdentityQuat
	scale := common.One3
	for i := len(chain) - 1; i >= 0; i-- {
		cur := d.Nodes[chain[i]]
		pos = pos.Add(rot.Rotate(cur.Translation.Mul(scale)))
		rot = rot.Mul(cur.Rotation).Normalized()
		scale = scale.Mul(cur.Scale)
	}
	return pos, rot
}

// Visuals instantiates one visual object per node.
func (d *Document) Visuals() []*Visual {
	if d == nil {
		return nil
	}
	out := make([]*Visual, len(d.Nodes))
	for i, n := range d.Nodes {
		v := &Visual{NodeIndex: i, MeshIndex: -1}
		if n.Mesh != nil {
			v.HasGeometry = true
			v.MeshIndex = *n.Mesh
		}
		if cc, ok := n.Extras["character_controller"].(bool); ok && cc {
			v.CharacterController = true
		}
		out[i] = v
	}
	return out
}
