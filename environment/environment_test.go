package environment

import (
	"bytes"
	"image/color"
	"log"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		name    string
		raw     any
		want    color.RGBA
		wantErr bool
	}{
		{"rgb_floats", []any{1.0, 0.0, 0.5}, color.RGBA{R: 0xff, G: 0, B: 0x80, A: 0xff}, false},
		{"rgba_ints", []any{1, 0, 0, 0}, color.RGBA{R: 0xff}, false},
		{"hex", "#102030", color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, false},
		{"name", "SkyBlue", color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}, false},
		{"unknown_name", "notacolor", color.RGBA{}, true},
		{"short", []any{1.0}, color.RGBA{}, true},
		{"nil", nil, color.RGBA{}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseColor(c.raw)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestEnvironmentSkyAndAmbient(t *testing.T) {
	env := New(log.New(&bytes.Buffer{}, "", 0))
	if _, ok := env.Sky(); ok {
		t.Fatalf("new environment should have no sky")
	}
	sky := Sky{Type: SkyGradient, HorizonColor: color.RGBA{R: 1, A: 0xff}}
	env.SetSky(sky)
	env.SetAmbientLight(sky.AmbientColor(), 0.5)

	got, ok := env.Sky()
	if !ok || got.Type != SkyGradient {
		t.Fatalf("Sky = %+v, %v", got, ok)
	}
	if env.Ambient().Color.R != 1 || env.Ambient().Intensity != 0.5 {
		t.Fatalf("Ambient = %+v", env.Ambient())
	}

	env.Reset()
	if _, ok := env.Sky(); ok {
		t.Fatalf("sky should be cleared on reset")
	}
}
