package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

type fakePlayer struct {
	mu      sync.Mutex
	sound   string
	playing bool
	gain    float64
	closed  bool
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) SetGain(g float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = g
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.closed = true
	return nil
}

func (p *fakePlayer) snapshot() (playing bool, gain float64, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing, p.gain, p.closed
}

// fakeBackend opens fake players. Sounds with a gate block until the gate
// closes, regardless of cancellation, so superseded loads can be observed.
type fakeBackend struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	failing map[string]error
	players []*fakePlayer
	opens   map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		gates:   make(map[string]chan struct{}),
		failing: make(map[string]error),
		opens:   make(map[string]int),
	}
}

func (b *fakeBackend) gate(id string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[id] = ch
	return ch
}

func (b *fakeBackend) fail(id string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[id] = err
}

func (b *fakeBackend) heal(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failing, id)
}

func (b *fakeBackend) Open(_ context.Context, sound models.Sound) (Player, error) {
	id := sound.Identifier()

	b.mu.Lock()
	b.opens[id]++
	gate := b.gates[id]
	err := b.failing[id]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	p := &fakePlayer{sound: id}
	b.mu.Lock()
	b.players = append(b.players, p)
	b.mu.Unlock()
	return p, nil
}

func (b *fakeBackend) openCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens[id]
}

func (b *fakeBackend) playersFor(id string) []*fakePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*fakePlayer
	for _, p := range b.players {
		if p.sound == id {
			out = append(out, p)
		}
	}
	return out
}

func (b *fakeBackend) livePlayers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.players {
		if _, _, closed := p.snapshot(); !closed {
			n++
		}
	}
	return n
}

func sound(key string) models.Sound {
	return models.Sound{ID: "builtin-" + key, Key: key, BuiltIn: true, AudioSource: "/sounds/" + key + ".ogg"}
}

func assignment(slot models.SlotID, key string, volume int) models.SlotAssignment {
	return models.SlotAssignment{Slot: slot, Sound: sound(key), Volume: volume}
}

func newTestEngine(t *testing.T, unlocked bool) (*Engine, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	e := NewEngine(b, Options{Unlocked: unlocked, PreviewDuration: time.Hour})
	t.Cleanup(func() { _ = e.Close() })
	return e, b
}

func statusOf(e *Engine, slot models.SlotID) SlotStatus {
	return e.Status()[slot.Index()]
}

func TestEnginePlaysAudibleSlots(t *testing.T) {
	e, b := newTestEngine(t, true)

	e.Assign(assignment("slot1", "ocean", 40), false)
	e.Assign(assignment("slot2", "rain", 0), false)
	e.wg.Wait()

	ocean := b.playersFor("ocean")
	require.Len(t, ocean, 1)
	playing, gain, _ := ocean[0].snapshot()
	assert.True(t, playing)
	assert.InDelta(t, 0.4, gain, 1e-9)
	assert.Equal(t, StatusPlaying, statusOf(e, "slot1").Status)

	rain := b.playersFor("rain")
	require.Len(t, rain, 1)
	playing, _, _ = rain[0].snapshot()
	assert.False(t, playing)
	assert.Equal(t, StatusStopped, statusOf(e, "slot2").Status)

	e.Apply(assignment("slot1", "ocean", 0), false)
	playing, _, _ = ocean[0].snapshot()
	assert.False(t, playing)
	assert.Equal(t, 1, b.openCount("ocean"))
}

func TestEngineMuteSilencesWithoutTouchingVolumes(t *testing.T) {
	e, b := newTestEngine(t, true)

	state := models.NewMixState()
	state.Slots["slot1"] = assignment("slot1", "ocean", 70)
	e.ApplyAll(state)
	e.wg.Wait()

	state.Muted = true
	e.ApplyAll(state)

	p := b.playersFor("ocean")[0]
	playing, gain, _ := p.snapshot()
	assert.False(t, playing)
	assert.Zero(t, gain)

	state.Muted = false
	e.ApplyAll(state)
	playing, gain, _ = p.snapshot()
	assert.True(t, playing)
	assert.InDelta(t, 0.7, gain, 1e-9)
}

func TestEngineLockedUntilUnlock(t *testing.T) {
	e, b := newTestEngine(t, false)

	e.Assign(assignment("slot3", "fire", 60), false)
	e.wg.Wait()

	p := b.playersFor("fire")[0]
	playing, gain, _ := p.snapshot()
	assert.False(t, playing)
	assert.InDelta(t, 0.6, gain, 1e-9)
	assert.False(t, e.Unlocked())

	e.Unlock()
	playing, _, _ = p.snapshot()
	assert.True(t, playing)
	assert.True(t, e.Unlocked())
}

func TestEngineReplacesPlayerOnSoundChange(t *testing.T) {
	e, b := newTestEngine(t, true)

	e.Assign(assignment("slot1", "ocean", 50), false)
	e.wg.Wait()
	e.Assign(assignment("slot1", "thunder", 50), false)
	e.wg.Wait()

	_, _, closed := b.playersFor("ocean")[0].snapshot()
	assert.True(t, closed)

	playing, _, closed := b.playersFor("thunder")[0].snapshot()
	assert.True(t, playing)
	assert.False(t, closed)
	assert.Equal(t, 1, b.livePlayers())
}

func TestEngineDiscardsSupersededLoad(t *testing.T) {
	e, b := newTestEngine(t, true)
	slow := b.gate("ocean")

	e.Assign(assignment("slot1", "ocean", 50), false)
	assert.Equal(t, StatusLoading, statusOf(e, "slot1").Status)

	e.Assign(assignment("slot1", "rain", 50), false)
	require.Eventually(t, func() bool {
		return statusOf(e, "slot1").Status == StatusPlaying
	}, time.Second, time.Millisecond)

	close(slow)
	e.wg.Wait()

	stale := b.playersFor("ocean")
	require.Len(t, stale, 1)
	playing, _, closed := stale[0].snapshot()
	assert.False(t, playing)
	assert.True(t, closed)

	assert.Equal(t, "rain", statusOf(e, "slot1").Sound)
	assert.Equal(t, 1, b.livePlayers())
}

func TestEngineAppliesChangesMadeWhileLoading(t *testing.T) {
	tests := []struct {
		name        string
		initial     int
		update      int
		muted       bool
		wantPlaying bool
		wantGain    float64
	}{
		{name: "volume raised", initial: 50, update: 80, wantPlaying: true, wantGain: 0.8},
		{name: "silent slot turned up", initial: 0, update: 60, wantPlaying: true, wantGain: 0.6},
		{name: "turned down to zero", initial: 40, update: 0, wantPlaying: false, wantGain: 0},
		{name: "muted", initial: 50, update: 50, muted: true, wantPlaying: false, wantGain: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, b := newTestEngine(t, true)
			slow := b.gate("ocean")

			e.Assign(assignment("slot1", "ocean", tt.initial), false)
			require.Equal(t, StatusLoading, statusOf(e, "slot1").Status)

			e.Apply(assignment("slot1", "ocean", tt.update), tt.muted)
			close(slow)
			e.wg.Wait()

			players := b.playersFor("ocean")
			require.Len(t, players, 1)
			playing, gain, closed := players[0].snapshot()
			assert.False(t, closed)
			assert.Equal(t, tt.wantPlaying, playing)
			assert.InDelta(t, tt.wantGain, gain, 1e-9)
			assert.Equal(t, 1, b.openCount("ocean"))
		})
	}
}

func TestEngineRapidReassignmentKeepsOnePlayer(t *testing.T) {
	e, b := newTestEngine(t, true)

	keys := []string{"ocean", "rain", "fire", "wind", "forest", "birds", "ocean", "stream"}
	for _, key := range keys {
		e.Assign(assignment("slot4", key, 80), false)
	}
	e.wg.Wait()

	assert.Equal(t, 1, b.livePlayers())
	assert.Equal(t, "stream", statusOf(e, "slot4").Sound)
	assert.Equal(t, StatusPlaying, statusOf(e, "slot4").Status)
}

func TestEngineIsolatesLoadFailures(t *testing.T) {
	e, b := newTestEngine(t, true)
	b.fail("rain", errors.New("decode failed"))

	e.Assign(assignment("slot1", "ocean", 30), false)
	e.Assign(assignment("slot2", "rain", 30), false)
	e.wg.Wait()

	failed := statusOf(e, "slot2")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "decode failed", failed.Error)
	assert.Equal(t, StatusPlaying, statusOf(e, "slot1").Status)
	assert.Empty(t, b.playersFor("rain"))

	// Volume changes do not retry.
	e.Apply(assignment("slot2", "rain", 60), false)
	e.wg.Wait()
	assert.Equal(t, 1, b.openCount("rain"))

	// Reselecting the sound does.
	b.heal("rain")
	e.Assign(assignment("slot2", "rain", 60), false)
	e.wg.Wait()
	assert.Equal(t, 2, b.openCount("rain"))
	assert.Equal(t, StatusPlaying, statusOf(e, "slot2").Status)
}

func TestEngineStopAll(t *testing.T) {
	e, b := newTestEngine(t, true)

	state := models.NewMixState()
	state.Slots["slot1"] = assignment("slot1", "ocean", 30)
	state.Slots["slot2"] = assignment("slot2", "rain", 30)
	e.ApplyAll(state)
	e.wg.Wait()

	e.StopAll()
	for _, st := range e.Status() {
		assert.NotEqual(t, StatusPlaying, st.Status, st.Slot)
	}

	e.ApplyAll(state)
	assert.Equal(t, StatusPlaying, statusOf(e, "slot1").Status)
	assert.Equal(t, 2, b.livePlayers())
}

func TestEnginePreview(t *testing.T) {
	t.Run("locked", func(t *testing.T) {
		e, _ := newTestEngine(t, false)
		err := e.Preview(context.Background(), sound("rain"))
		assert.True(t, errors.Is(err, apperrors.ErrAudioLocked))
	})

	t.Run("replaces previous preview", func(t *testing.T) {
		e, b := newTestEngine(t, true)

		require.NoError(t, e.Preview(context.Background(), sound("rain")))
		require.NoError(t, e.Preview(context.Background(), sound("fire")))

		_, _, closed := b.playersFor("rain")[0].snapshot()
		assert.True(t, closed)
		playing, gain, _ := b.playersFor("fire")[0].snapshot()
		assert.True(t, playing)
		assert.Equal(t, 1.0, gain)

		e.StopPreview()
		_, _, closed = b.playersFor("fire")[0].snapshot()
		assert.True(t, closed)
	})

	t.Run("stops after duration", func(t *testing.T) {
		b := newFakeBackend()
		e := NewEngine(b, Options{Unlocked: true, PreviewDuration: 20 * time.Millisecond})
		defer e.Close()

		require.NoError(t, e.Preview(context.Background(), sound("wind")))
		p := b.playersFor("wind")[0]
		assert.Eventually(t, func() bool {
			_, _, closed := p.snapshot()
			return closed
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("load failure", func(t *testing.T) {
		e, b := newTestEngine(t, true)
		b.fail("wind", errors.New("missing"))

		err := e.Preview(context.Background(), sound("wind"))
		var appErr *apperrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.CodeAudioProcessing, appErr.Code)
	})
}

func TestEngineCloseReleasesEverything(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b, Options{Unlocked: true})
	slow := b.gate("fire")

	e.Assign(assignment("slot1", "ocean", 30), false)
	e.Assign(assignment("slot2", "fire", 30), false)
	require.Eventually(t, func() bool {
		return statusOf(e, "slot1").Status == StatusPlaying
	}, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = e.Close()
		close(done)
	}()
	close(slow)
	<-done

	assert.Zero(t, b.livePlayers())
	assert.NoError(t, e.Close())

	// Updates after Close are ignored.
	e.Assign(assignment("slot3", "wind", 30), false)
	assert.Zero(t, b.openCount("wind"))
}

func TestEngineCloseCancelsPreview(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b, Options{Unlocked: true, PreviewDuration: time.Hour})

	require.NoError(t, e.Preview(context.Background(), sound("birds")))
	e.mu.Lock()
	require.NotNil(t, e.preview)
	timer := e.preview.timer
	e.mu.Unlock()

	require.NoError(t, e.Close())

	playing, _, closed := b.playersFor("birds")[0].snapshot()
	assert.False(t, playing)
	assert.True(t, closed)
	assert.Nil(t, e.preview)
	// Stop reports false once the timer was already stopped.
	assert.False(t, timer.Stop())

	assert.ErrorIs(t, e.Preview(context.Background(), sound("birds")), ErrClosed)
	assert.Len(t, b.playersFor("birds"), 1)
}
