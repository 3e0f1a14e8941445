// Package sound keeps the document's audio sources and emitters and turns
// active emitters into players.
package sound

import (
	"errors"
	"fmt"
	"log"
)

var (
	ErrIndexOutOfRange = errors.New("sound: index out of range")
	ErrNoData          = errors.New("sound: source has no data")
	ErrNoBackend       = errors.New("sound: no backend")
)

type Source struct {
	Name     string
	MimeType string
	Data     []byte
	Gain     float64
	Loop     bool
	Autoplay bool
}

type Positional struct {
	ConeInnerAngle float64
	ConeOuterAngle float64
	ConeOuterGain  float64
	DistanceModel  string
	MaxDistance    float64
	RefDistance    float64
	RolloffFactor  float64
}

type Emitter struct {
	Name       string
	Type       string
	Gain       float64
	Sources    []int
	Positional Positional
}

type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
}

type Backend interface {
	NewPlayer(src Source) (Player, error)
}

// Library is the scene's audio host.
type Library struct {
	backend  Backend
	sources  []Source
	emitters []Emitter
	players  map[int][]Player
	logger   *log.Logger
}

func NewLibrary(backend Backend, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.Default()
	}
	return &Library{backend: backend, players: make(map[int][]Player), logger: logger}
}

// Append adds sources and emitters after the existing ones. Emitter source
// indices are relative to the appended sources and are rebased; indices
// outside them become -1. It returns the index of the first appended emitter.
func (l *Library) Append(sources []Source, emitters []Emitter) int {
	if l == nil {
		return 0
	}
	srcBase := len(l.sources)
	emBase := len(l.emitters)
	l.sources = append(l.sources, sources...)
	for _, em := range emitters {
		rebased := make([]int, len(em.Sources))
		for i, si := range em.Sources {
			if si < 0 || si >= len(sources) {
				l.logger.Printf("Sound: warning: emitter %q references source %d of %d", em.Name, si, len(sources))
				rebased[i] = -1
				continue
			}
			rebased[i] = si + srcBase
		}
		em.Sources = rebased
		l.emitters = append(l.emitters, em)
	}
	l.logger.Printf("Sound: appended %d sources, %d emitters", len(sources), len(emitters))
	return emBase
}

func (l *Library) HasBackend() bool {
	return l != nil && l.backend != nil
}

func (l *Library) SourceCount() int {
	if l == nil {
		return 0
	}
	return len(l.sources)
}

func (l *Library) EmitterCount() int {
	if l == nil {
		return 0
	}
	return len(l.emitters)
}

func (l *Library) Emitter(index int) (Emitter, bool) {
	if l == nil || index < 0 || index >= len(l.emitters) {
		return Emitter{}, false
	}
	return l.emitters[index], true
}

// Activate creates players for every source of an emitter. Sources that fail
// to decode are logged and skipped.
func (l *Library) Activate(emitter int) ([]Player, error) {
	if l == nil {
		return nil, ErrNoBackend
	}
	em, ok := l.Emitter(emitter)
	if !ok {
		return nil, fmt.Errorf("%w: emitter %d", ErrIndexOutOfRange, emitter)
	}
	if existing, ok := l.players[emitter]; ok {
		return existing, nil
	}
	if l.backend == nil {
		return nil, ErrNoBackend
	}

	var out []Player
	for _, si := range em.Sources {
		if si < 0 || si >= len(l.sources) {
			l.logger.Printf("Sound: warning: emitter %d references source %d of %d", emitter, si, len(l.sources))
			continue
		}
		src := l.sources[si]
		p, err := l.backend.NewPlayer(src)
		if err != nil {
			l.logger.Printf("Sound: warning: emitter %d source %d: %v", emitter, si, err)
			continue
		}
		p.SetVolume(clampVolume(em.Gain * src.Gain))
		if src.Autoplay {
			p.Play()
		}
		out = append(out, p)
	}
	l.players[emitter] = out
	return out, nil
}

func (l *Library) Players(emitter int) []Player {
	if l == nil {
		return nil
	}
	return l.players[emitter]
}

// Reset pauses every player and forgets all definitions.
func (l *Library) Reset() {
	if l == nil {
		return
	}
	for _, ps := range l.players {
		for _, p := range ps {
			p.Pause()
		}
	}
	l.players = make(map[int][]Player)
	l.sources = nil
	l.emitters = nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
