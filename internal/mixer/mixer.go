package mixer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// Engine is the playback side of the mixer. Implementations must not block
// on audio I/O; loads complete asynchronously.
type Engine interface {
	// Assign reacts to a sound selection. A slot whose previous load failed
	// is retried even when the sound is unchanged.
	Assign(a models.SlotAssignment, muted bool)
	// Apply reacts to a volume or mute change of one slot.
	Apply(a models.SlotAssignment, muted bool)
	// ApplyAll brings every slot in line with state.
	ApplyAll(state models.MixState)
	// StopAll halts every slot without touching stored volumes.
	StopAll()
}

// Options tunes the controls.
type Options struct {
	// ResetDuration is the length of the reset fade.
	ResetDuration time.Duration
	// ResetSteps is the number of discrete volume steps in the fade.
	ResetSteps int
}

// DefaultOptions returns the standard fade of 800ms in 20 steps.
func DefaultOptions() Options {
	return Options{ResetDuration: 800 * time.Millisecond, ResetSteps: 20}
}

// Mixer layers the user-facing operations over the Store and the Engine.
type Mixer struct {
	store   *Store
	engine  Engine
	catalog SoundCatalog
	opts    Options

	// mu orders store mutation and engine updates so both see changes in
	// the order they were issued.
	mu sync.Mutex
	// opMu serialises the long-running operations: reset, preset apply and teardown.
	opMu sync.Mutex

	listenersMu  sync.RWMutex
	listeners    map[uint64]func(models.MixState)
	nextListener uint64
}

// New wires a mixer. Call Start to restore the persisted mix.
func New(store *Store, engine Engine, catalog SoundCatalog, opts Options) *Mixer {
	if opts.ResetSteps <= 0 {
		opts.ResetSteps = DefaultOptions().ResetSteps
	}
	if opts.ResetDuration < 0 {
		opts.ResetDuration = 0
	}
	return &Mixer{
		store:     store,
		engine:    engine,
		catalog:   catalog,
		opts:      opts,
		listeners: make(map[uint64]func(models.MixState)),
	}
}

// Start restores the persisted mix and hands it to the engine.
func (m *Mixer) Start() models.MixState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.store.Restore()
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
	return state
}

// State returns a snapshot of the current mix.
func (m *Mixer) State() models.MixState {
	return m.store.Snapshot()
}

// SetVolume sets a slot volume, clamped to [0,100].
func (m *Mixer) SetVolume(slot models.SlotID, volume int) (models.SlotAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.store.SetVolume(slot, volume)
	if err != nil {
		return a, err
	}
	m.engine.Apply(a, m.store.Muted())
	m.notifyLocked(m.store.Snapshot())
	return a, nil
}

// SetSound assigns the sound with the given identifier to slot, keeping the
// slot volume.
func (m *Mixer) SetSound(slot models.SlotID, identifier string) (models.SlotAssignment, error) {
	if !slot.IsValid() {
		return models.SlotAssignment{}, invalidSlot(slot)
	}
	sound, ok := m.catalog.Lookup(identifier)
	if !ok {
		return models.SlotAssignment{}, apperrors.NotFound("Sound not found").WithField("sound").WithInternal("identifier %q", identifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.store.SetSound(slot, sound)
	if err != nil {
		return a, err
	}
	m.engine.Assign(a, m.store.Muted())
	m.notifyLocked(m.store.Snapshot())
	return a, nil
}

// ToggleMute flips the global mute and returns the new value.
func (m *Mixer) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	muted := m.store.ToggleMuted()
	state := m.store.Snapshot()
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
	return muted
}

// SetMuted sets the global mute.
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.SetMuted(muted)
	state := m.store.Snapshot()
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
}

// Reset fades every slot to 0 over the configured duration, then forces
// exact zeros, stops all playback and writes the zero volumes through.
// Sound assignments are kept. Volume changes that arrive during the fade are
// overwritten by the next step. Cancelling ctx skips the remaining steps but
// still produces the final silent state.
func (m *Mixer) Reset(ctx context.Context) models.MixState {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	start := m.store.Snapshot()
	steps := m.opts.ResetSteps
	interval := m.opts.ResetDuration / time.Duration(steps)

	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

	fade:
		for i := 1; i < steps; i++ {
			select {
			case <-ctx.Done():
				logger.Debug("Reset fade interrupted at step %d/%d", i, steps)
				break fade
			case <-ticker.C:
			}
			m.fadeStep(start, 1-float64(i)/float64(steps))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.store.ZeroVolumes()
	m.engine.StopAll()
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
	return state
}

func (m *Mixer) fadeStep(start models.MixState, remaining float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	muted := m.store.Muted()
	for _, slot := range models.Slots {
		v := int(math.Round(float64(start.Slots[slot].Volume) * remaining))
		a, err := m.store.SetVolume(slot, v)
		if err != nil {
			continue
		}
		m.engine.Apply(a, muted)
	}
	m.notifyLocked(m.store.Snapshot())
}

// ApplyPreset silences every slot, reconciles entries against the current
// mix and installs the result in one step.
func (m *Mixer) ApplyPreset(entries []models.PresetEntry) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store.Snapshot()
	m.engine.StopAll()

	res := Reconcile(current, entries, m.catalog)
	for _, w := range res.Warnings {
		logger.Warn("Applying preset: %s", w)
	}

	state := m.store.Install(res.Assignments)
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
	logger.Debug("Applied preset: %s", state)
	return res
}

// PresetEntries serialises the current mix for saving as a preset.
func (m *Mixer) PresetEntries() []models.PresetEntry {
	return Entries(m.store.Snapshot())
}

// OnMixChanged registers fn to receive every new MixState. fn runs while the
// mixer is locked, so it must not block or call back into the Mixer. The
// returned function unregisters it.
func (m *Mixer) OnMixChanged(fn func(models.MixState)) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

// Teardown ends the session mix: pending writes are flushed once, playback
// stops, and the persisted mix is cleared back to the defaults.
func (m *Mixer) Teardown() models.MixState {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Flush()
	m.engine.StopAll()
	state := m.store.Clear()
	m.engine.ApplyAll(state)
	m.notifyLocked(state)
	logger.Info("Mixer state cleared")
	return state
}

// Close writes any pending change. The engine is owned by the caller.
func (m *Mixer) Close() {
	m.store.Close()
}

func (m *Mixer) notifyLocked(state models.MixState) {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()
	for _, fn := range m.listeners {
		fn(state.Clone())
	}
}
