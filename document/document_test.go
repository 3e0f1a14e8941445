package document

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"testing"

	"github.com/milk9111/omiloader/common"
)

const sampleDoc = `{
  "asset": {"version": "2.0", "extras": {"title": "Hangar"}},
  "scene": 0,
  "scenes": [{"name": "Main", "nodes": [0]}],
  "nodes": [
    {"name": "root", "children": [1], "translation": [1, 2, 3],
     "extensions": {"OMI_vehicle_body": {"maxSpeed": 4}, "OMI_seat": {"angle": 1.5}, "OMI_link": {"uri": "x"}}},
    {"name": "child", "translation": [0, 1, 0], "mesh": 0, "extras": {"character_controller": true}}
  ],
  "extensions": {"OMI_physics_gravity": {"gravity": 9.8, "direction": [0, -1, 0]}}
}`

func TestParseJSON(t *testing.T) {
	doc, visuals, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Nodes) != 2 || len(visuals) != 2 {
		t.Fatalf("expected 2 nodes and visuals, got %d/%d", len(doc.Nodes), len(visuals))
	}

	root := doc.Nodes[0]
	names := make([]string, 0, len(root.Extensions))
	for _, ext := range root.Extensions {
		names = append(names, ext.Name)
	}
	want := []string{"OMI_vehicle_body", "OMI_seat", "OMI_link"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("extension order = %v, want %v", names, want)
		}
	}
	raw, ok := root.Extension("OMI_vehicle_body")
	if !ok {
		t.Fatalf("expected vehicle body extension")
	}
	m, ok := raw.(map[string]any)
	if !ok || m["maxSpeed"] != 4.0 {
		t.Fatalf("unexpected raw vehicle body: %#v", raw)
	}

	if doc.Parent(1) != 0 || doc.Parent(0) != -1 {
		t.Fatalf("unexpected parents: %d %d", doc.Parent(0), doc.Parent(1))
	}
	if !visuals[1].HasGeometry || !visuals[1].CharacterController || visuals[0].HasGeometry {
		t.Fatalf("unexpected visuals: %+v %+v", visuals[0], visuals[1])
	}
	if _, ok := doc.Extension("OMI_physics_gravity"); !ok {
		t.Fatalf("expected document gravity extension")
	}
	if doc.Title() != "Hangar" {
		t.Fatalf("Title = %q", doc.Title())
	}

	pos, _ := doc.WorldTransform(1)
	if pos.X != 1 || pos.Y != 3 || pos.Z != 3 {
		t.Fatalf("world position = %+v", pos)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"not_json", "hello", ErrMalformed},
		{"bad_version", `{"asset": {"version": "1.0"}}`, ErrUnsupportedVersion},
		{"child_out_of_range", `{"asset": {"version": "2.0"}, "nodes": [{"children": [5]}]}`, ErrMalformed},
		{"two_parents", `{"asset": {"version": "2.0"}, "nodes": [{"children": [2]}, {"children": [2]}, {}]}`, ErrMalformed},
		{"bad_rotation", `{"asset": {"version": "2.0"}, "nodes": [{"rotation": [0, 0, 1]}]}`, ErrMalformed},
		{"extensions_not_object", `{"asset": {"version": "2.0"}, "nodes": [{"extensions": [1, 2]}]}`, ErrMalformed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := Parse([]byte(c.data))
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestParseAcceptsAnyValidJSON(t *testing.T) {
	const data = `{
  "asset": {"version": "2.0", "extras": {"title": "Dock\/North \u00e9"}},
  "images": [{"uri": "textures\/crate.png"}],
  "nodes": [
    {"name": "a", "name": "gate",
     "extensions": {"OMI_link": {"uri": "https:\/\/example.com\/lobby.gltf"}, "OMI_seat": {"angle": 1}, "OMI_link": {"uri": "b.gltf"}}}
  ]
}`
	doc, _, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title() != "Dock/North é" {
		t.Fatalf("Title = %q", doc.Title())
	}
	if doc.Images[0].URI != "textures/crate.png" {
		t.Fatalf("image uri = %q", doc.Images[0].URI)
	}
	node := doc.Nodes[0]
	if node.Name != "gate" {
		t.Fatalf("repeated key should keep the last value, got %q", node.Name)
	}
	if len(node.Extensions) != 2 || node.Extensions[0].Name != "OMI_link" || node.Extensions[1].Name != "OMI_seat" {
		t.Fatalf("unexpected extensions %+v", node.Extensions)
	}
	link, _ := node.Extensions[0].Raw.(map[string]any)
	if link["uri"] != "b.gltf" {
		t.Fatalf("repeated extension should keep the last value, got %#v", node.Extensions[0].Raw)
	}
}

func TestTitleFallsBackToSceneName(t *testing.T) {
	doc, _, err := Parse([]byte(`{"asset": {"version": "2.0"}, "scenes": [{"name": "Lobby"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title() != "Lobby" {
		t.Fatalf("Title = %q", doc.Title())
	}
}

func TestMatrixDecompose(t *testing.T) {
	// 90 degrees around X, translated by (4, 5, 6).
	data := `{"asset": {"version": "2.0"}, "nodes": [{"matrix": [1,0,0,0, 0,0,1,0, 0,-1,0,0, 4,5,6,1]}]}`
	doc, _, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := doc.Nodes[0]
	if n.Translation.X != 4 || n.Translation.Y != 5 || n.Translation.Z != 6 {
		t.Fatalf("translation = %+v", n.Translation)
	}
	fwd := n.Rotation.Rotate(common.Forward3)
	if math.Abs(fwd.Y+1) > 1e-9 {
		t.Fatalf("expected forward to rotate onto -Y, got %+v", fwd)
	}
}

func buildGLB(t *testing.T, jsonChunk, bin []byte) []byte {
	t.Helper()
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}
	var buf bytes.Buffer
	total := glbHeaderLen + 8 + len(jsonChunk)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}
	for _, v := range []uint32{glbMagic, 2, uint32(total), uint32(len(jsonChunk)), glbChunkJSON} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(jsonChunk)
	if len(bin) > 0 {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(bin)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(glbChunkBIN))
		buf.Write(bin)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestParseGLBWithEmbeddedTexture(t *testing.T) {
	pngBytes := encodePNG(t)
	size := strconv.Itoa(len(pngBytes))
	jsonChunk := []byte(`{"asset": {"version": "2.0"},` +
		`"buffers": [{"byteLength": ` + size + `}],` +
		`"bufferViews": [{"buffer": 0, "byteLength": ` + size + `}],` +
		`"images": [{"bufferView": 0, "mimeType": "image/png"}],` +
		`"textures": [{"source": 0}],` +
		`"nodes": [{"name": "a"}]}`)

	doc, _, err := Parse(buildGLB(t, jsonChunk, pngBytes))
	if err != nil {
		t.Fatalf("Parse GLB: %v", err)
	}
	img, err := doc.Texture(0)
	if err != nil {
		t.Fatalf("Texture: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Fatalf("unexpected texture bounds %v", b)
	}
	if _, err := doc.Texture(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestTextureFromDataURI(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t))
	doc, _, err := Parse([]byte(`{"asset": {"version": "2.0"}, "images": [{"uri": "` + uri + `"}], "textures": [{"source": 0}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.Texture(0); err != nil {
		t.Fatalf("Texture: %v", err)
	}
}

func TestGLBVersionRejected(t *testing.T) {
	data := buildGLB(t, []byte(`{"asset": {"version": "2.0"}}`), nil)
	binary.LittleEndian.PutUint32(data[4:8], 1)
	if _, _, err := Parse(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected unsupported version, got %v", err)
	}
}
