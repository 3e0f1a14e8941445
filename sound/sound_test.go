package sound

import (
	"bytes"
	"errors"
	"log"
	"testing"
)

type fakePlayer struct {
	playing bool
	volume  float64
}

func (p *fakePlayer) Play()               { p.playing = true }
func (p *fakePlayer) Pause()              { p.playing = false }
func (p *fakePlayer) IsPlaying() bool     { return p.playing }
func (p *fakePlayer) SetVolume(v float64) { p.volume = v }

type fakeBackend struct {
	created []Source
	fail    string
}

func (b *fakeBackend) NewPlayer(src Source) (Player, error) {
	if src.Name == b.fail {
		return nil, ErrNoData
	}
	b.created = append(b.created, src)
	return &fakePlayer{}, nil
}

func TestActivate(t *testing.T) {
	var logs bytes.Buffer
	backend := &fakeBackend{fail: "broken"}
	lib := NewLibrary(backend, log.New(&logs, "", 0))
	lib.Append(
		[]Source{
			{Name: "engine", Gain: 0.5, Autoplay: true},
			{Name: "broken", Gain: 1},
		},
		[]Emitter{{Name: "car", Gain: 0.8, Sources: []int{0, 1, 9}}},
	)

	players, err := lib.Activate(0)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	p := players[0].(*fakePlayer)
	if !p.playing || p.volume != 0.4 {
		t.Fatalf("unexpected player state %+v", p)
	}
	if !bytes.Contains(logs.Bytes(), []byte("references source 9")) {
		t.Fatalf("expected out-of-range source warning, logs=%q", logs.String())
	}

	again, _ := lib.Activate(0)
	if len(again) != 1 || len(backend.created) != 1 {
		t.Fatalf("second activation should reuse players")
	}

	if _, err := lib.Activate(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	lib.Reset()
	if p.playing || lib.EmitterCount() != 0 {
		t.Fatalf("reset should pause players and clear emitters")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, _, err := decode(44100, Source{Name: "x", MimeType: "audio/flac", Data: []byte{1, 2, 3}}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if !isWAV(Source{Data: []byte("RIFF\x00\x00\x00\x00WAVEfmt ")}) {
		t.Fatalf("expected RIFF/WAVE header to be detected")
	}
}

func TestAppendRebasesSources(t *testing.T) {
	lib := NewLibrary(nil, log.New(&bytes.Buffer{}, "", 0))
	lib.Append([]Source{{Name: "a"}}, []Emitter{{Name: "first", Sources: []int{0}}})

	base := lib.Append([]Source{{Name: "b"}, {Name: "c"}}, []Emitter{{Name: "second", Sources: []int{1, 5}}})
	if base != 1 {
		t.Fatalf("Append base = %d, want 1", base)
	}
	em, ok := lib.Emitter(1)
	if !ok || len(em.Sources) != 2 || em.Sources[0] != 2 || em.Sources[1] != -1 {
		t.Fatalf("unexpected rebased emitter %+v", em)
	}
	if lib.HasBackend() {
		t.Fatalf("library without backend reports one")
	}
}
