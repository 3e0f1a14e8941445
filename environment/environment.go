// Package environment holds the sky and ambient light of a loaded scene.
package environment

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"golang.org/x/image/colornames"
)

type SkyType string

const (
	SkyPlain    SkyType = "plain"
	SkyGradient SkyType = "gradient"
	SkyPanorama SkyType = "panorama"
	SkyPhysical SkyType = "physical"
)

type Sky struct {
	Type SkyType

	// plain
	Color color.RGBA

	// gradient
	TopColor     color.RGBA
	HorizonColor color.RGBA
	BottomColor  color.RGBA
	Curve        float64

	// panorama: texture index into the document
	PanoramaTexture int

	// physical
	RayleighColor color.RGBA
	MieColor      color.RGBA
	SunDiskScale  float64
}

// AmbientColor is the color a sky contributes to ambient lighting.
func (s Sky) AmbientColor() color.RGBA {
	switch s.Type {
	case SkyPlain:
		return s.Color
	case SkyGradient:
		return s.HorizonColor
	case SkyPhysical:
		return s.RayleighColor
	default:
		return color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	}
}

type Ambient struct {
	Color     color.RGBA
	Intensity float64
}

// Environment is the scene's environment host.
type Environment struct {
	sky     *Sky
	ambient Ambient
	logger  *log.Logger
}

func New(logger *log.Logger) *Environment {
	if logger == nil {
		logger = log.Default()
	}
	return &Environment{logger: logger}
}

func (e *Environment) SetSky(sky Sky) {
	if e == nil {
		return
	}
	e.sky = &sky
	e.logger.Printf("Environment: SetSky type=%s", sky.Type)
}

// Sky returns the active sky, or false when none was set.
func (e *Environment) Sky() (Sky, bool) {
	if e == nil || e.sky == nil {
		return Sky{}, false
	}
	return *e.sky, true
}

func (e *Environment) SetAmbientLight(c color.RGBA, intensity float64) {
	if e == nil {
		return
	}
	e.ambient = Ambient{Color: c, Intensity: intensity}
	e.logger.Printf("Environment: SetAmbientLight color=#%02x%02x%02x intensity=%.2f", c.R, c.G, c.B, intensity)
}

func (e *Environment) Ambient() Ambient {
	if e == nil {
		return Ambient{}
	}
	return e.ambient
}

func (e *Environment) Reset() {
	if e == nil {
		return
	}
	e.sky = nil
	e.ambient = Ambient{}
}

// ParseColor accepts [r,g,b] or [r,g,b,a] in 0..1, a "#rrggbb" string, or a
// CSS color name.
func ParseColor(raw any) (color.RGBA, error) {
	switch v := raw.(type) {
	case nil:
		return color.RGBA{}, fmt.Errorf("environment: missing color")
	case string:
		return parseColorString(v)
	case []any:
		if len(v) != 3 && len(v) != 4 {
			return color.RGBA{}, fmt.Errorf("environment: color needs 3 or 4 components, got %d", len(v))
		}
		comps := [4]float64{1, 1, 1, 1}
		for i, c := range v {
			f, ok := toFloat(c)
			if !ok {
				return color.RGBA{}, fmt.Errorf("environment: color component %d is %T", i, c)
			}
			comps[i] = f
		}
		return color.RGBA{R: unit(comps[0]), G: unit(comps[1]), B: unit(comps[2]), A: unit(comps[3])}, nil
	case []float64:
		anys := make([]any, len(v))
		for i := range v {
			anys[i] = v[i]
		}
		return ParseColor(anys)
	default:
		return color.RGBA{}, fmt.Errorf("environment: unsupported color %T", raw)
	}
}

func parseColorString(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if len(s) == 7 && s[0] == '#' {
		var r, g, b uint8
		if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("environment: parse %q: %w", s, err)
		}
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("environment: unknown color %q", s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func unit(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 0xff
	}
	return uint8(f*255 + 0.5)
}
