package playback

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// Player is one loaded, looping sound.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	// SetGain sets the output gain in [0,1].
	SetGain(gain float64)
	Close() error
}

// Backend loads sounds into players. Open may block on decoding and must
// honour ctx cancellation.
type Backend interface {
	Open(ctx context.Context, sound models.Sound) (Player, error)
}

// NullBackend produces silent players that only track their state. It is
// used when no audio device is configured.
type NullBackend struct{}

// Open checks that the sound source exists and returns a silent player.
func (NullBackend) Open(ctx context.Context, sound models.Sound) (Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(sound.AudioSource); err != nil {
		return nil, fmt.Errorf("sound source for %s: %w", sound.Identifier(), err)
	}
	return &nullPlayer{}, nil
}

type nullPlayer struct {
	mu      sync.Mutex
	playing bool
	gain    float64
	closed  bool
}

func (p *nullPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.playing = true
	}
}

func (p *nullPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *nullPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *nullPlayer) SetGain(gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = gain
}

func (p *nullPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.closed = true
	return nil
}
