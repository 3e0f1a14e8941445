package omi

import (
	"fmt"

	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
	"github.com/milk9111/omiloader/sound"
)

// keyAudioRange holds the emitter range of one vendor variant inside the
// scene's sound library.
const keyAudioRange = "omi.audio_range."

type audioRange struct {
	Base  int
	Count int
}

type audioDataPayload struct {
	URI        string `yaml:"uri"`
	MimeType   string `yaml:"mimeType"`
	BufferView *int   `yaml:"bufferView"`
}

type positionalPayload struct {
	ConeInnerAngle float64 `yaml:"coneInnerAngle"`
	ConeOuterAngle float64 `yaml:"coneOuterAngle"`
	ConeOuterGain  float64 `yaml:"coneOuterGain"`
	DistanceModel  string  `yaml:"distanceModel"`
	MaxDistance    float64 `yaml:"maxDistance"`
	RefDistance    float64 `yaml:"refDistance"`
	RolloffFactor  float64 `yaml:"rolloffFactor"`
}

func (p *positionalPayload) positional() sound.Positional {
	if p == nil {
		return sound.Positional{}
	}
	return sound.Positional(*p)
}

type khrAudioPayload struct {
	Audio    []audioDataPayload  `yaml:"audio"`
	Sources  []khrSourcePayload  `yaml:"sources"`
	Emitters []khrEmitterPayload `yaml:"emitters"`
}

type khrSourcePayload struct {
	Name     string   `yaml:"name"`
	Gain     *float64 `yaml:"gain"`
	Loop     bool     `yaml:"loop"`
	AutoPlay bool     `yaml:"autoPlay"`
	Audio    *int     `yaml:"audio"`
}

type khrEmitterPayload struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"`
	Gain       *float64           `yaml:"gain"`
	Sources    []int              `yaml:"sources"`
	Positional *positionalPayload `yaml:"positional"`
}

func importKHRAudio(ic *ImportContext, p khrAudioPayload) error {
	data := make([][]byte, len(p.Audio))
	mimes := make([]string, len(p.Audio))
	for i, a := range p.Audio {
		b, err := loadAudioData(ic.doc, a)
		if err != nil {
			ic.Warnf("audio %d: %v", i, err)
		}
		data[i] = b
		mimes[i] = a.MimeType
	}

	sources := make([]sound.Source, len(p.Sources))
	for i, s := range p.Sources {
		src := sound.Source{Name: s.Name, Gain: gainOr(s.Gain), Loop: s.Loop, Autoplay: s.AutoPlay}
		if src.Name == "" {
			src.Name = fmt.Sprintf("source_%d", i)
		}
		switch {
		case s.Audio == nil:
			ic.Warnf("audio source %d names no audio data", i)
		case *s.Audio < 0 || *s.Audio >= len(data):
			ic.Warnf("audio source %d: %v: audio %d, have %d", i, ErrIndexOutOfRange, *s.Audio, len(data))
		default:
			src.Data = data[*s.Audio]
			src.MimeType = mimes[*s.Audio]
		}
		sources[i] = src
	}

	emitters := make([]sound.Emitter, len(p.Emitters))
	for i, e := range p.Emitters {
		emitters[i] = sound.Emitter{
			Name:       e.Name,
			Type:       emitterType(e.Type),
			Gain:       gainOr(e.Gain),
			Sources:    e.Sources,
			Positional: e.Positional.positional(),
		}
	}

	return defineAudio(ic, KindKHRAudioEmitter, sources, emitters, "emitters")
}

type omiAudioPayload struct {
	AudioSources  []audioDataPayload  `yaml:"audioSources"`
	AudioEmitters []omiEmitterPayload `yaml:"audioEmitters"`
}

type omiEmitterPayload struct {
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`
	Gain           *float64 `yaml:"gain"`
	Loop           bool     `yaml:"loop"`
	Playing        bool     `yaml:"playing"`
	Source         int      `yaml:"source"`
	ConeInnerAngle float64  `yaml:"coneInnerAngle"`
	ConeOuterAngle float64  `yaml:"coneOuterAngle"`
	ConeOuterGain  float64  `yaml:"coneOuterGain"`
	DistanceModel  string   `yaml:"distanceModel"`
	MaxDistance    float64  `yaml:"maxDistance"`
	RefDistance    float64  `yaml:"refDistance"`
	RolloffFactor  float64  `yaml:"rolloffFactor"`
}

// importOMIAudio handles the older layout, where playback flags live on the
// emitter and each emitter plays one source. Every emitter gets its own
// source entry carrying those flags.
func importOMIAudio(ic *ImportContext, p omiAudioPayload) error {
	data := make([][]byte, len(p.AudioSources))
	for i, a := range p.AudioSources {
		b, err := loadAudioData(ic.doc, a)
		if err != nil {
			ic.Warnf("audio source %d: %v", i, err)
		}
		data[i] = b
	}

	var sources []sound.Source
	emitters := make([]sound.Emitter, len(p.AudioEmitters))
	for i, e := range p.AudioEmitters {
		em := sound.Emitter{
			Name: e.Name,
			Type: emitterType(e.Type),
			Gain: gainOr(e.Gain),
			Positional: sound.Positional{
				ConeInnerAngle: e.ConeInnerAngle,
				ConeOuterAngle: e.ConeOuterAngle,
				ConeOuterGain:  e.ConeOuterGain,
				DistanceModel:  e.DistanceModel,
				MaxDistance:    e.MaxDistance,
				RefDistance:    e.RefDistance,
				RolloffFactor:  e.RolloffFactor,
			},
		}
		if e.Source < 0 || e.Source >= len(data) {
			ic.Warnf("audio emitter %d: %v: source %d, have %d", i, ErrIndexOutOfRange, e.Source, len(data))
		} else {
			em.Sources = []int{len(sources)}
			sources = append(sources, sound.Source{
				Name:     fmt.Sprintf("emitter_%d", i),
				MimeType: p.AudioSources[e.Source].MimeType,
				Data:     data[e.Source],
				Gain:     1,
				Loop:     e.Loop,
				Autoplay: e.Playing,
			})
		}
		emitters[i] = em
	}

	return defineAudio(ic, KindAudioEmitter, sources, emitters, "audioEmitters")
}

// defineAudio appends the variant's definitions to the sound library and
// activates the emitters the default scene lists under sceneKey.
func defineAudio(ic *ImportContext, kind Kind, sources []sound.Source, emitters []sound.Emitter, sceneKey string) error {
	lib := ic.scene.Sound
	base := lib.Append(sources, emitters)
	rng := audioRange{Base: base, Count: len(emitters)}
	ic.SetData(keyAudioRange+kind.String(), rng)

	s := ic.doc.DefaultScene()
	if s == nil {
		return nil
	}
	for _, ext := range s.Extensions {
		if ext.Name != kind.String() {
			continue
		}
		ref, err := Decode[map[string][]int](ext.Raw)
		if err != nil {
			return err
		}
		for _, idx := range ref[sceneKey] {
			if idx < 0 || idx >= rng.Count {
				ic.Warnf("scene %s: %v: emitter %d, have %d", kind, ErrIndexOutOfRange, idx, rng.Count)
				continue
			}
			activate(ic, rng.Base+idx)
		}
	}
	return nil
}

func activate(ic *ImportContext, emitter int) {
	lib := ic.scene.Sound
	if !lib.HasBackend() {
		return
	}
	if _, err := lib.Activate(emitter); err != nil {
		ic.Warnf("activate emitter %d: %v", emitter, err)
	}
}

func loadAudioData(doc *document.Document, a audioDataPayload) ([]byte, error) {
	switch {
	case a.BufferView != nil:
		return doc.BufferViewBytes(*a.BufferView)
	case a.URI != "":
		return doc.ResolveURI(a.URI)
	default:
		return nil, fmt.Errorf("%w: neither uri nor bufferView", ErrMalformedExtension)
	}
}

func gainOr(g *float64) float64 {
	if g == nil {
		return 1
	}
	return *g
}

func emitterType(t string) string {
	if t == "" {
		return "global"
	}
	return t
}

type nodeEmitterPayload struct {
	Emitter int `yaml:"emitter"`
}

// nodeAudio builds the node handler for one vendor variant.
func nodeAudio(kind Kind) func(ic *ImportContext, node *document.Node, p nodeEmitterPayload) error {
	return func(ic *ImportContext, node *document.Node, p nodeEmitterPayload) error {
		rng, _ := GetData[audioRange](ic, keyAudioRange+kind.String())
		if p.Emitter < 0 || p.Emitter >= rng.Count {
			return fmt.Errorf("%w: %s emitter %d, have %d", ErrIndexOutOfRange, kind, p.Emitter, rng.Count)
		}
		index := rng.Base + p.Emitter
		em, ok := ic.scene.Sound.Emitter(index)
		if !ok {
			return fmt.Errorf("%w: sound emitter %d", ErrIndexOutOfRange, index)
		}
		h, err := ic.GetOrCreateEntity(node.Index)
		if err != nil {
			return err
		}
		if err := ecs.Add(ic.scene.World, h.Entity, component.AudioEmitterComponent.Kind(), &component.AudioEmitter{
			Vendor:  kind.String(),
			Emitter: index,
			Type:    em.Type,
			Gain:    em.Gain,
			Sources: em.Sources,
		}); err != nil {
			return err
		}
		activate(ic, index)
		return nil
	}
}
