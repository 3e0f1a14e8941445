package sound

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

var (
	contextOnce sync.Once
	audioCtx    *audio.Context
)

// EbitenBackend plays sources through a process-wide ebiten audio context.
// The context is created on first use.
type EbitenBackend struct {
	SampleRate int
}

func (b *EbitenBackend) context() *audio.Context {
	contextOnce.Do(func() {
		rate := b.SampleRate
		if rate <= 0 {
			rate = 44100
		}
		if cur := audio.CurrentContext(); cur != nil {
			audioCtx = cur
			return
		}
		audioCtx = audio.NewContext(rate)
	})
	return audioCtx
}

func (b *EbitenBackend) NewPlayer(src Source) (Player, error) {
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, src.Name)
	}
	ctx := b.context()

	stream, length, err := decode(ctx.SampleRate(), src)
	if err != nil {
		return nil, err
	}
	var r io.Reader = stream
	if src.Loop {
		r = audio.NewInfiniteLoop(stream, length)
	}
	p, err := ctx.NewPlayer(r)
	if err != nil {
		return nil, fmt.Errorf("sound: new player %q: %w", src.Name, err)
	}
	return p, nil
}

func decode(sampleRate int, src Source) (io.ReadSeeker, int64, error) {
	reader := bytes.NewReader(src.Data)
	switch {
	case isWAV(src):
		s, err := wav.DecodeWithSampleRate(sampleRate, reader)
		if err != nil {
			return nil, 0, fmt.Errorf("sound: decode wav %q: %w", src.Name, err)
		}
		return s, s.Length(), nil
	case strings.Contains(src.MimeType, "mpeg") || strings.Contains(src.MimeType, "mp3"):
		s, err := mp3.DecodeWithSampleRate(sampleRate, reader)
		if err != nil {
			return nil, 0, fmt.Errorf("sound: decode mp3 %q: %w", src.Name, err)
		}
		return s, s.Length(), nil
	default:
		return nil, 0, fmt.Errorf("sound: unsupported audio type %q for %q", src.MimeType, src.Name)
	}
}

func isWAV(src Source) bool {
	if strings.Contains(src.MimeType, "wav") {
		return true
	}
	return len(src.Data) >= 12 && string(src.Data[:4]) == "RIFF" && string(src.Data[8:12]) == "WAVE"
}
