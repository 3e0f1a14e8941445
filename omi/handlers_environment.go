package omi

import (
	"fmt"
	"image/color"

	"github.com/milk9111/omiloader/environment"
)

const KeySkies = "omi.skies"

type skiesPayload struct {
	Skies []skyPayload `yaml:"skies"`
}

type skyPayload struct {
	Type                  string           `yaml:"type"`
	AmbientLightColor     any              `yaml:"ambientLightColor"`
	AmbientLightIntensity *float64         `yaml:"ambientLightIntensity"`
	Plain                 *plainSky        `yaml:"plain"`
	Gradient              *gradientSky     `yaml:"gradient"`
	Panorama              *panoramaSky     `yaml:"panorama"`
	Physical              *physicalSkyData `yaml:"physical"`
}

type plainSky struct {
	Color any `yaml:"color"`
}

type gradientSky struct {
	TopColor     any     `yaml:"topColor"`
	HorizonColor any     `yaml:"horizonColor"`
	BottomColor  any     `yaml:"bottomColor"`
	Curve        float64 `yaml:"curve"`
}

type panoramaSky struct {
	Equirectangular *int `yaml:"equirectangular"`
}

type physicalSkyData struct {
	RayleighColor any     `yaml:"rayleighColor"`
	MieColor      any     `yaml:"mieColor"`
	SunDiskScale  float64 `yaml:"sunDiskScale"`
}

type skyChoice struct {
	Sky       environment.Sky
	Ambient   color.RGBA
	Intensity float64
}

type sceneSkyPayload struct {
	Sky int `yaml:"sky"`
}

// importSkies stores every sky and applies the one the default scene selects,
// or the first one.
func importSkies(ic *ImportContext, p skiesPayload) error {
	skies := make([]skyChoice, len(p.Skies))
	valid := make([]bool, len(p.Skies))
	for i, sp := range p.Skies {
		choice, err := sp.choice(ic)
		if err != nil {
			ic.Warnf("sky %d: %v", i, err)
			continue
		}
		skies[i] = choice
		valid[i] = true
	}
	ic.SetData(KeySkies, skies)
	if len(skies) == 0 {
		return nil
	}

	selected := 0
	if s := ic.doc.DefaultScene(); s != nil {
		for _, ext := range s.Extensions {
			if ext.Name != KindEnvironmentSky.String() {
				continue
			}
			ref, err := Decode[sceneSkyPayload](ext.Raw)
			if err != nil {
				return err
			}
			selected = ref.Sky
		}
	}
	if selected < 0 || selected >= len(skies) {
		return fmt.Errorf("%w: scene sky %d, have %d", ErrIndexOutOfRange, selected, len(skies))
	}
	if !valid[selected] {
		return fmt.Errorf("%w: scene sky %d is not usable", ErrMalformedExtension, selected)
	}

	choice := skies[selected]
	ic.scene.Environment.SetSky(choice.Sky)
	ic.scene.Environment.SetAmbientLight(choice.Ambient, choice.Intensity)
	return nil
}

func (sp skyPayload) choice(ic *ImportContext) (skyChoice, error) {
	sky := environment.Sky{Type: environment.SkyType(sp.Type), PanoramaTexture: -1}
	var err error
	switch sky.Type {
	case environment.SkyPlain:
		if sp.Plain == nil {
			return skyChoice{}, fmt.Errorf("%w: plain sky without data", ErrMalformedExtension)
		}
		if sky.Color, err = parseColor(sp.Plain.Color); err != nil {
			return skyChoice{}, err
		}
	case environment.SkyGradient:
		if sp.Gradient == nil {
			return skyChoice{}, fmt.Errorf("%w: gradient sky without data", ErrMalformedExtension)
		}
		if sky.TopColor, err = parseColor(sp.Gradient.TopColor); err != nil {
			return skyChoice{}, err
		}
		if sky.HorizonColor, err = parseColor(sp.Gradient.HorizonColor); err != nil {
			return skyChoice{}, err
		}
		if sky.BottomColor, err = parseColor(sp.Gradient.BottomColor); err != nil {
			return skyChoice{}, err
		}
		sky.Curve = sp.Gradient.Curve
	case environment.SkyPanorama:
		if sp.Panorama == nil || sp.Panorama.Equirectangular == nil {
			return skyChoice{}, fmt.Errorf("%w: panorama sky without texture", ErrMalformedExtension)
		}
		tex := *sp.Panorama.Equirectangular
		if tex < 0 || tex >= len(ic.doc.Textures) {
			return skyChoice{}, fmt.Errorf("%w: panorama texture %d, have %d", ErrIndexOutOfRange, tex, len(ic.doc.Textures))
		}
		if _, err := ic.doc.Texture(tex); err != nil {
			return skyChoice{}, fmt.Errorf("%w: panorama texture %d: %v", ErrMalformedExtension, tex, err)
		}
		sky.PanoramaTexture = tex
	case environment.SkyPhysical:
		if sp.Physical == nil {
			return skyChoice{}, fmt.Errorf("%w: physical sky without data", ErrMalformedExtension)
		}
		if sky.RayleighColor, err = parseColor(sp.Physical.RayleighColor); err != nil {
			return skyChoice{}, err
		}
		if sky.MieColor, err = parseColor(sp.Physical.MieColor); err != nil {
			return skyChoice{}, err
		}
		sky.SunDiskScale = sp.Physical.SunDiskScale
	default:
		return skyChoice{}, fmt.Errorf("%w: sky type %q", ErrMalformedExtension, sp.Type)
	}

	choice := skyChoice{Sky: sky, Ambient: sky.AmbientColor(), Intensity: 1}
	if sp.AmbientLightColor != nil {
		if choice.Ambient, err = parseColor(sp.AmbientLightColor); err != nil {
			return skyChoice{}, err
		}
	}
	if sp.AmbientLightIntensity != nil {
		choice.Intensity = *sp.AmbientLightIntensity
	}
	return choice, nil
}

func parseColor(raw any) (color.RGBA, error) {
	c, err := environment.ParseColor(raw)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %v", ErrMalformedExtension, err)
	}
	return c, nil
}
