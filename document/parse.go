package document

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milk9111/omiloader/common"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
	glbHeaderLen = 12
)

type rawAsset struct {
	Version   string         `json:"version"`
	Generator string         `json:"generator"`
	Extras    map[string]any `json:"extras"`
}

type rawScene struct {
	Name       string          `json:"name"`
	Nodes      []int           `json:"nodes"`
	Extensions json.RawMessage `json:"extensions"`
}

type rawNode struct {
	Name        string          `json:"name"`
	Children    []int           `json:"children"`
	Translation []float64       `json:"translation"`
	Rotation    []float64       `json:"rotation"`
	Scale       []float64       `json:"scale"`
	Matrix      []float64       `json:"matrix"`
	Mesh        *int            `json:"mesh"`
	Extensions  json.RawMessage `json:"extensions"`
	Extras      map[string]any  `json:"extras"`
}

type rawImage struct {
	URI        string `json:"uri"`
	MimeType   string `json:"mimeType"`
	BufferView *int   `json:"bufferView"`
}

type rawTexture struct {
	Source *int `json:"source"`
}

type rawBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
}

type rawBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
}

type rawDocument struct {
	Asset          rawAsset        `json:"asset"`
	Scene          *int            `json:"scene"`
	Scenes         []rawScene      `json:"scenes"`
	Nodes          []rawNode       `json:"nodes"`
	Images         []rawImage      `json:"images"`
	Textures       []rawTexture    `json:"textures"`
	BufferViews    []rawBufferView `json:"bufferViews"`
	Buffers        []rawBuffer     `json:"buffers"`
	Extensions     json.RawMessage `json:"extensions"`
	ExtensionsUsed []string        `json:"extensionsUsed"`
}

// Parse decodes glTF JSON or a GLB container and instantiates one visual
// object per node.
func Parse(data []byte) (*Document, []*Visual, error) {
	jsonChunk, bin, err := splitContainer(data)
	if err != nil {
		return nil, nil, err
	}

	var raw rawDocument
	if err := json.Unmarshal(jsonChunk, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc, err := build(&raw)
	if err != nil {
		return nil, nil, err
	}
	doc.binChunk = bin
	return doc, doc.Visuals(), nil
}

func splitContainer(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 || binary.LittleEndian.Uint32(data[:4]) != glbMagic {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, nil, fmt.Errorf("%w: not a glTF JSON object or GLB container", ErrMalformed)
		}
		return trimmed, nil, nil
	}

	if len(data) < glbHeaderLen {
		return nil, nil, fmt.Errorf("%w: truncated GLB header", ErrMalformed)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != 2 {
		return nil, nil, fmt.Errorf("%w: GLB version %d", ErrUnsupportedVersion, version)
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) {
		return nil, nil, fmt.Errorf("%w: GLB length %d exceeds %d bytes", ErrMalformed, total, len(data))
	}

	var jsonChunk, bin []byte
	off := glbHeaderLen
	for off+8 <= total {
		length := int(binary.LittleEndian.Uint32(data[off : off+4]))
		kind := binary.LittleEndian.Uint32(data[off+4 : off+8])
		start := off + 8
		end := start + length
		if length < 0 || end > total {
			return nil, nil, fmt.Errorf("%w: GLB chunk at %d overruns container", ErrMalformed, off)
		}
		switch kind {
		case glbChunkJSON:
			if jsonChunk == nil {
				jsonChunk = data[start:end]
			}
		case glbChunkBIN:
			if bin == nil {
				bin = data[start:end]
			}
		}
		off = end
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: GLB has no JSON chunk", ErrMalformed)
	}
	return jsonChunk, bin, nil
}

func build(raw *rawDocument) (*Document, error) {
	if !strings.HasPrefix(raw.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, raw.Asset.Version)
	}

	doc := &Document{
		Asset: Asset{
			Version:   raw.Asset.Version,
			Generator: raw.Asset.Generator,
			Extras:    raw.Asset.Extras,
		},
		ExtensionsUsed: raw.ExtensionsUsed,
	}

	exts, err := orderedExtensions(raw.Extensions)
	if err != nil {
		return nil, fmt.Errorf("document extensions: %w", err)
	}
	doc.Extensions = exts

	n := len(raw.Nodes)
	doc.Nodes = make([]*Node, n)
	doc.parents = make([]int, n)
	for i := range doc.parents {
		doc.parents[i] = -1
	}

	for i := range raw.Nodes {
		node, err := buildNode(i, &raw.Nodes[i])
		if err != nil {
			return nil, err
		}
		for _, c := range node.Children {
			if c < 0 || c >= n || c == i {
				return nil, fmt.Errorf("%w: node %d child %d", ErrMalformed, i, c)
			}
			if doc.parents[c] >= 0 {
				return nil, fmt.Errorf("%w: node %d has more than one parent", ErrMalformed, c)
			}
			doc.parents[c] = i
		}
		doc.Nodes[i] = node
	}

	for i, s := range raw.Scenes {
		exts, err := orderedExtensions(s.Extensions)
		if err != nil {
			return nil, fmt.Errorf("scene %d extensions: %w", i, err)
		}
		for _, root := range s.Nodes {
			if root < 0 || root >= n {
				return nil, fmt.Errorf("%w: scene %d root %d", ErrMalformed, i, root)
			}
		}
		doc.Scenes = append(doc.Scenes, Scene{Name: s.Name, Nodes: s.Nodes, Extensions: exts})
	}
	if raw.Scene != nil {
		doc.Scene = *raw.Scene
	}

	for _, img := range raw.Images {
		doc.Images = append(doc.Images, Image(img))
	}
	for _, tex := range raw.Textures {
		doc.Textures = append(doc.Textures, Texture(tex))
	}
	for _, bv := range raw.BufferViews {
		doc.BufferViews = append(doc.BufferViews, BufferView(bv))
	}
	for _, b := range raw.Buffers {
		doc.Buffers = append(doc.Buffers, Buffer(b))
	}
	return doc, nil
}

func buildNode(index int, raw *rawNode) (*Node, error) {
	node := &Node{
		Index:       index,
		Name:        raw.Name,
		Children:    raw.Children,
		Translation: common.Vec3{},
		Rotation:    common.IdentityQuat,
		Scale:       common.One3,
		Mesh:        raw.Mesh,
		Extras:      raw.Extras,
	}

	if len(raw.Matrix) > 0 {
		if len(raw.Matrix) != 16 {
			return nil, fmt.Errorf("%w: node %d matrix has %d values", ErrMalformed, index, len(raw.Matrix))
		}
		node.Translation, node.Rotation, node.Scale = decompose(raw.Matrix)
	}
	if raw.Translation != nil {
		v, ok := common.Vec3From(raw.Translation)
		if !ok {
			return nil, fmt.Errorf("%w: node %d translation", ErrMalformed, index)
		}
		node.Translation = v
	}
	if raw.Rotation != nil {
		q, ok := common.QuatFrom(raw.Rotation)
		if !ok {
			return nil, fmt.Errorf("%w: node %d rotation", ErrMalformed, index)
		}
		node.Rotation = q.Normalized()
	}
	if raw.Scale != nil {
		v, ok := common.Vec3From(raw.Scale)
		if !ok {
			return nil, fmt.Errorf("%w: node %d scale", ErrMalformed, index)
		}
		node.Scale = v
	}

	exts, err := orderedExtensions(raw.Extensions)
	if err != nil {
		return nil, fmt.Errorf("node %d extensions: %w", index, err)
	}
	node.Extensions = exts
	return node, nil
}

// decompose splits a column-major TRS matrix. Shear is discarded.
func decompose(m []float64) (common.Vec3, common.Quat, common.Vec3) {
	x := common.Vec3{X: m[0], Y: m[1], Z: m[2]}
	y := common.Vec3{X: m[4], Y: m[5], Z: m[6]}
	z := common.Vec3{X: m[8], Y: m[9], Z: m[10]}
	t := common.Vec3{X: m[12], Y: m[13], Z: m[14]}

	scale := common.Vec3{X: x.Length(), Y: y.Length(), Z: z.Length()}
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return t, common.IdentityQuat, scale
	}
	rot := common.QuatFromBasis(x.Scale(1/scale.X), y.Scale(1/scale.Y), z.Scale(1/scale.Z))
	return t, rot, scale
}

// orderedExtensions reads an "extensions" object without losing key order.
// A repeated key keeps its first position and its last value, matching what
// encoding/json does for the rest of the document.
func orderedExtensions(raw json.RawMessage) ([]Extension, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: extensions must be an object", ErrMalformed)
	}

	var out []Extension
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: extension key %v", ErrMalformed, tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: extension %q: %v", ErrMalformed, name, err)
		}
		if at, dup := seen[name]; dup {
			out[at].Raw = value
			continue
		}
		seen[name] = len(out)
		out = append(out, Extension{Name: name, Raw: value})
	}
	return out, nil
}
