// Package mixer implements the slot-based mixing engine: slot state,
// persistence, preset reconciliation and the user-facing controls.
package mixer

import (
	"fmt"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/localstore"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// SoundCatalog resolves sound identifiers and per-slot defaults.
type SoundCatalog interface {
	Lookup(identifier string) (models.Sound, bool)
	Default(slot models.SlotID) models.Sound
}

// Store is the single source of truth for the MixState. Every mutation is
// queued for persistence through a Flusher.
type Store struct {
	mu      sync.RWMutex
	state   models.MixState
	catalog SoundCatalog
	local   localstore.Store
	flusher *Flusher
}

// NewStore creates a store holding the default mix. Call Restore to load the
// persisted mix.
func NewStore(catalog SoundCatalog, local localstore.Store, flushInterval time.Duration) *Store {
	return &Store{
		state:   defaultState(catalog),
		catalog: catalog,
		local:   local,
		flusher: NewFlusher(local, StateKey, flushInterval),
	}
}

func defaultState(catalog SoundCatalog) models.MixState {
	state := models.NewMixState()
	for _, slot := range models.Slots {
		state.Slots[slot] = models.SlotAssignment{Slot: slot, Sound: catalog.Default(slot)}
	}
	return state
}

func invalidSlot(slot models.SlotID) error {
	return apperrors.InvalidField("slot", fmt.Sprintf("unknown slot %q", slot))
}

// Restore loads the persisted mix. Missing, unreadable or corrupt data yields
// the defaults; it never fails.
func (s *Store) Restore() models.MixState {
	state := s.load()

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	return state.Clone()
}

func (s *Store) load() models.MixState {
	data, ok, err := s.local.Get(StateKey)
	if err != nil {
		logger.Error("Failed to read persisted mix, using defaults: %v", err)
		return defaultState(s.catalog)
	}
	if !ok {
		logger.Info("No persisted mix found, using defaults")
		return defaultState(s.catalog)
	}

	state, warnings, err := decodeState(data, s.catalog)
	if err != nil {
		logger.Warn("Discarding persisted mix: %v", err)
		return defaultState(s.catalog)
	}
	for _, w := range warnings {
		logger.Warn("Restoring mix: %s", w)
	}
	logger.Info("Restored mix: %s", state)
	return state
}

// Assignment returns the current assignment of slot. Every valid slot has one.
func (s *Store) Assignment(slot models.SlotID) (models.SlotAssignment, error) {
	if !slot.IsValid() {
		return models.SlotAssignment{}, invalidSlot(slot)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Slots[slot], nil
}

// SetVolume stores a clamped volume and returns the resulting assignment.
func (s *Store) SetVolume(slot models.SlotID, volume int) (models.SlotAssignment, error) {
	if !slot.IsValid() {
		return models.SlotAssignment{}, invalidSlot(slot)
	}
	clamped := models.ClampVolume(volume)
	if clamped != volume {
		logger.Debug("Clamped %s volume %d to %d", slot, volume, clamped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.state.Slots[slot]
	a.Volume = clamped
	s.state.Slots[slot] = a
	s.persistLocked()
	return a, nil
}

// SetSound replaces the sound of slot, keeping its volume.
func (s *Store) SetSound(slot models.SlotID, sound models.Sound) (models.SlotAssignment, error) {
	if !slot.IsValid() {
		return models.SlotAssignment{}, invalidSlot(slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.state.Slots[slot]
	a.Sound = sound
	s.state.Slots[slot] = a
	s.persistLocked()
	return a, nil
}

// SetMuted sets the global mute flag. Volumes are untouched.
func (s *Store) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Muted = muted
	s.persistLocked()
}

// Muted reports the global mute flag.
func (s *Store) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Muted
}

// ToggleMuted flips the mute flag and returns the new value.
func (s *Store) ToggleMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Muted = !s.state.Muted
	s.persistLocked()
	return s.state.Muted
}

// Install replaces every slot assignment in one step. Slots absent from
// assignments keep their current assignment; the mute flag is preserved.
func (s *Store) Install(assignments map[models.SlotID]models.SlotAssignment) models.MixState {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range models.Slots {
		a, ok := assignments[slot]
		if !ok {
			continue
		}
		a.Slot = slot
		a.Volume = models.ClampVolume(a.Volume)
		s.state.Slots[slot] = a
	}
	s.persistLocked()
	return s.state.Clone()
}

// ZeroVolumes sets every volume to 0, keeps the sounds, and writes the result
// through immediately.
func (s *Store) ZeroVolumes() models.MixState {
	s.mu.Lock()
	for slot, a := range s.state.Slots {
		a.Volume = 0
		s.state.Slots[slot] = a
	}
	s.persistLocked()
	state := s.state.Clone()
	s.mu.Unlock()

	s.flusher.FlushNow()
	return state
}

// Snapshot returns a copy of the current MixState.
func (s *Store) Snapshot() models.MixState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Flush writes any pending change now.
func (s *Store) Flush() {
	s.flusher.FlushNow()
}

// Clear drops the persisted mix and returns the in-memory state to defaults.
func (s *Store) Clear() models.MixState {
	s.mu.Lock()
	s.state = defaultState(s.catalog)
	state := s.state.Clone()
	s.mu.Unlock()

	s.flusher.Discard()
	return state
}

// Close performs the final flush.
func (s *Store) Close() {
	s.flusher.Close()
}

func (s *Store) persistLocked() {
	payload, err := encodeState(s.state)
	if err != nil {
		logger.Error("Failed to encode mix state: %v", err)
		return
	}
	s.flusher.Enqueue(payload)
}
