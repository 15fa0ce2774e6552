package playback

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/oto/v2"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// Decoder turns an audio source into interleaved stereo s16le PCM.
type Decoder interface {
	DecodePCM(ctx context.Context, path string) ([]byte, error)
}

// OtoBackend plays loops on the host audio device. All players share one
// oto context; each slot gets its own oto player and volume.
type OtoBackend struct {
	ctx     *oto.Context
	decoder Decoder
	cache   *pcmCache
}

// NewOtoBackend opens the audio device and waits until it is ready.
func NewOtoBackend(sampleRate int, decoder Decoder, cacheSize int) (*OtoBackend, error) {
	ctx, ready, err := oto.NewContext(sampleRate, 2, oto.FormatSignedInt16LE)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	logger.Info("Audio device ready (%d Hz stereo)", sampleRate)
	return &OtoBackend{
		ctx:     ctx,
		decoder: decoder,
		cache:   newPCMCache(cacheSize),
	}, nil
}

// Open decodes the sound (or reuses a cached decode) and returns a paused
// looping player.
func (b *OtoBackend) Open(ctx context.Context, sound models.Sound) (Player, error) {
	pcm, ok := b.cache.Get(sound.AudioSource)
	if !ok {
		var err error
		pcm, err = b.decoder.DecodePCM(ctx, sound.AudioSource)
		if err != nil {
			return nil, err
		}
		b.cache.Put(sound.AudioSource, pcm)
		logger.Debug("Decoded %s (%d bytes)", sound.Identifier(), len(pcm))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &otoPlayer{player: b.ctx.NewPlayer(newLoopReader(pcm))}, nil
}

type otoPlayer struct {
	player oto.Player
}

func (p *otoPlayer) Play()                { p.player.Play() }
func (p *otoPlayer) Pause()               { p.player.Pause() }
func (p *otoPlayer) IsPlaying() bool      { return p.player.IsPlaying() }
func (p *otoPlayer) SetGain(gain float64) { p.player.SetVolume(gain) }

func (p *otoPlayer) Close() error {
	p.player.Pause()
	return p.player.Close()
}
