// Package playback adapts the slot mixer to a playback backend. Each slot
// owns at most one player; replacing a slot's sound releases the previous
// player before the next load starts, and loads that complete after being
// superseded are discarded.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("playback engine closed")

// Status is the playback state of one slot.
type Status string

// Slot playback states.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// SlotStatus reports one slot for diagnostics.
type SlotStatus struct {
	Slot   models.SlotID `json:"slot"`
	Sound  string        `json:"sound,omitempty"`
	Status Status        `json:"status"`
	Gain   float64       `json:"gain"`
	Error  string        `json:"error,omitempty"`
}

// Options configures an Engine.
type Options struct {
	// Unlocked allows playback to start without an explicit Unlock call.
	Unlocked bool
	// PreviewDuration bounds how long a preview plays.
	PreviewDuration time.Duration
}

type slotState struct {
	assignment models.SlotAssignment
	muted      bool
	generation uint64
	player     Player
	loading    bool
	failure    error
	cancel     context.CancelFunc
}

type previewState struct {
	generation uint64
	player     Player
	timer      *time.Timer
}

// Engine drives one player per slot from MixState updates.
type Engine struct {
	backend         Backend
	previewDuration time.Duration

	mu       sync.Mutex
	slots    map[models.SlotID]*slotState
	unlocked bool
	muted    bool
	closed   bool

	preview    *previewState
	previewGen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine with every slot idle.
func NewEngine(backend Backend, opts Options) *Engine {
	if opts.PreviewDuration <= 0 {
		opts.PreviewDuration = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		backend:         backend,
		previewDuration: opts.PreviewDuration,
		slots:           make(map[models.SlotID]*slotState, models.NumSlots),
		unlocked:        opts.Unlocked,
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, slot := range models.Slots {
		e.slots[slot] = &slotState{assignment: models.SlotAssignment{Slot: slot}}
	}
	return e
}

// Assign handles a sound selection. The slot reloads when the sound changed
// or its last load failed.
func (e *Engine) Assign(a models.SlotAssignment, muted bool) {
	e.update(a, muted, true)
}

// Apply handles a volume or mute change. The slot only reloads when its
// sound changed.
func (e *Engine) Apply(a models.SlotAssignment, muted bool) {
	e.update(a, muted, false)
}

// ApplyAll brings every slot in line with state.
func (e *Engine) ApplyAll(state models.MixState) {
	e.mu.Lock()
	e.muted = state.Muted
	e.applyPreviewGainLocked()
	e.mu.Unlock()

	for _, a := range state.Ordered() {
		e.update(a, state.Muted, false)
	}
}

func (e *Engine) update(a models.SlotAssignment, muted, retryFailed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	s, ok := e.slots[a.Slot]
	if !ok {
		logger.Debug("Ignoring playback update for unknown slot %q", a.Slot)
		return
	}

	changed := s.assignment.Sound.Identifier() != a.Sound.Identifier() ||
		s.assignment.Sound.AudioSource != a.Sound.AudioSource
	s.assignment = a
	s.muted = muted

	if a.Sound.IsZero() {
		e.releaseLocked(s)
		return
	}
	if changed || (retryFailed && s.failure != nil) {
		e.replaceLocked(s)
		return
	}
	e.reconcileLocked(s)
}

// replaceLocked releases the current player and starts loading the slot's
// assigned sound. Any load still in flight is superseded.
func (e *Engine) replaceLocked(s *slotState) {
	e.releaseLocked(s)

	s.generation++
	s.loading = true
	s.failure = nil

	ctx, cancel := context.WithCancel(e.ctx)
	s.cancel = cancel

	e.wg.Add(1)
	go e.load(ctx, s.assignment.Slot, s.generation, s.assignment.Sound)
}

func (e *Engine) load(ctx context.Context, slot models.SlotID, generation uint64, sound models.Sound) {
	defer e.wg.Done()

	player, err := e.backend.Open(ctx, sound)

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.slots[slot]
	if e.closed || s.generation != generation {
		if player != nil {
			closePlayer(player)
		}
		logger.Debug("Discarded superseded load of %s for %s", sound.Identifier(), slot)
		return
	}

	s.loading = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if err != nil {
		s.failure = err
		logger.Error("Failed to load %s for %s: %v", sound.Identifier(), slot, err)
		return
	}

	s.player = player
	e.reconcileLocked(s)
	logger.Debug("Loaded %s for %s", sound.Identifier(), slot)
}

// releaseLocked cancels any load and stops and frees the current player.
func (e *Engine) releaseLocked(s *slotState) {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.player != nil {
		s.player.Pause()
		closePlayer(s.player)
		s.player = nil
	}
	s.loading = false
	s.failure = nil
}

// reconcileLocked applies gain and play state: a slot plays exactly when its
// volume is above 0, mute is off, and audio is unlocked.
func (e *Engine) reconcileLocked(s *slotState) {
	if s.player == nil {
		return
	}
	s.player.SetGain(s.assignment.Gain(s.muted))

	shouldPlay := s.assignment.Audible(s.muted) && e.unlocked
	switch {
	case shouldPlay && !s.player.IsPlaying():
		s.player.Play()
	case !shouldPlay && s.player.IsPlaying():
		s.player.Pause()
	}
}

// StopAll pauses every slot and any preview. Stored volumes are untouched;
// the next update resumes slots per the usual rules.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, slot := range models.Slots {
		if p := e.slots[slot].player; p != nil && p.IsPlaying() {
			p.Pause()
		}
	}
	e.stopPreviewLocked()
}

// Unlock allows playback to start and resumes every audible slot.
func (e *Engine) Unlock() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unlocked {
		return
	}
	e.unlocked = true
	for _, slot := range models.Slots {
		e.reconcileLocked(e.slots[slot])
	}
	logger.Info("Audio playback unlocked")
}

// Unlocked reports whether playback may start.
func (e *Engine) Unlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocked
}

// Status returns the playback state of every slot in slot order.
func (e *Engine) Status() []SlotStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]SlotStatus, 0, len(models.Slots))
	for _, slot := range models.Slots {
		s := e.slots[slot]
		st := SlotStatus{
			Slot:  slot,
			Sound: s.assignment.Sound.Identifier(),
			Gain:  s.assignment.Gain(s.muted),
		}
		switch {
		case s.failure != nil:
			st.Status = StatusFailed
			st.Error = s.failure.Error()
		case s.loading:
			st.Status = StatusLoading
		case s.player != nil && s.player.IsPlaying():
			st.Status = StatusPlaying
		case s.player != nil:
			st.Status = StatusStopped
		default:
			st.Status = StatusIdle
		}
		out = append(out, st)
	}
	return out
}

// Preview plays sound on a dedicated player for the configured duration.
// A new preview replaces the previous one. Preview is independent of the
// slots but honours the global mute.
func (e *Engine) Preview(ctx context.Context, sound models.Sound) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !e.unlocked {
		e.mu.Unlock()
		return apperrors.ErrAudioLocked
	}
	e.stopPreviewLocked()
	e.previewGen++
	generation := e.previewGen
	e.mu.Unlock()

	player, err := e.backend.Open(ctx, sound)
	if err != nil {
		return apperrors.AudioProcessing("Failed to load preview", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || generation != e.previewGen {
		closePlayer(player)
		return nil
	}

	p := &previewState{generation: generation, player: player}
	p.timer = time.AfterFunc(e.previewDuration, func() { e.endPreview(generation) })
	e.preview = p
	e.applyPreviewGainLocked()
	player.Play()
	return nil
}

// StopPreview ends the current preview, if any.
func (e *Engine) StopPreview() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopPreviewLocked()
}

func (e *Engine) endPreview(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.preview != nil && e.preview.generation == generation {
		e.stopPreviewLocked()
	}
}

func (e *Engine) applyPreviewGainLocked() {
	if e.preview == nil {
		return
	}
	if e.muted {
		e.preview.player.SetGain(0)
		return
	}
	e.preview.player.SetGain(1)
}

func (e *Engine) stopPreviewLocked() {
	if e.preview == nil {
		return
	}
	e.preview.timer.Stop()
	e.preview.player.Pause()
	closePlayer(e.preview.player)
	e.preview = nil
}

// Close releases every player and waits for in-flight loads to finish.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.cancel()
	for _, slot := range models.Slots {
		e.releaseLocked(e.slots[slot])
	}
	e.stopPreviewLocked()
	e.previewGen++
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

func closePlayer(p Player) {
	if err := p.Close(); err != nil {
		logger.Error("Failed to close player: %v", err)
	}
}
