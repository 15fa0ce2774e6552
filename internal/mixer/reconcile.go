package mixer

import (
	"fmt"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// SoundLookup resolves a preset sound identifier.
type SoundLookup interface {
	Lookup(identifier string) (models.Sound, bool)
}

// Placement records how a slot was written during reconciliation.
type Placement string

// Placement kinds, in pass order.
const (
	PlacedInPlace   Placement = "in_place"
	PlacedByCatalog Placement = "catalog"
	PlacedByLegacy  Placement = "legacy_slot"
	PlacedSilenced  Placement = "silenced"
)

// Result is the outcome of Reconcile.
type Result struct {
	Assignments map[models.SlotID]models.SlotAssignment
	Placements  map[models.SlotID]Placement
	Warnings    []string
}

// State returns current with the reconciled assignments installed.
func (r Result) State(current models.MixState) models.MixState {
	state := current.Clone()
	for slot, a := range r.Assignments {
		state.Slots[slot] = a
	}
	return state
}

type presetTarget struct {
	identifier string
	volume     int
}

// Reconcile maps sound-keyed preset entries onto the fixed slot topology.
// It has no side effects; warnings are returned for the caller to log.
//
// Passes, first match wins per entry:
//  1. entries whose sound is already assigned to a slot update that slot in place;
//  2. remaining entries found in the catalog go to the first unwritten slot,
//     preferring slots that are currently silent;
//  3. entries keyed by a slot id ("slot3") set that slot's volume if unwritten;
//  4. every slot still unwritten keeps its sound at volume 0.
//
// Duplicate identifiers keep their first position with the last volume.
// Unknown identifiers are skipped and consume no slot. The mute flag is not
// part of the result.
func Reconcile(current models.MixState, entries []models.PresetEntry, catalog SoundLookup) Result {
	res := Result{
		Assignments: make(map[models.SlotID]models.SlotAssignment, models.NumSlots),
		Placements:  make(map[models.SlotID]Placement, models.NumSlots),
	}

	targets := make([]presetTarget, 0, len(entries))
	position := make(map[string]int, len(entries))
	for _, e := range entries {
		volume := e.MixerVolume()
		id := canonicalIdentifier(e.SoundIdentifier, catalog)
		if i, dup := position[id]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"duplicate entry for %q, volume %d replaces %d", id, volume, targets[i].volume))
			targets[i].volume = volume
			continue
		}
		position[id] = len(targets)
		targets = append(targets, presetTarget{identifier: id, volume: volume})
	}

	consumed := make(map[string]bool, len(targets))
	write := func(slot models.SlotID, sound models.Sound, volume int, how Placement) {
		res.Assignments[slot] = models.SlotAssignment{Slot: slot, Sound: sound, Volume: volume}
		res.Placements[slot] = how
	}
	written := func(slot models.SlotID) bool {
		_, ok := res.Assignments[slot]
		return ok
	}

	// Pass 1: keep the current layout wherever the preset reuses a sound.
	for _, slot := range models.Slots {
		a := current.Slots[slot]
		id := a.Sound.Identifier()
		i, ok := position[id]
		if !ok || consumed[id] {
			continue
		}
		consumed[id] = true
		write(slot, a.Sound, targets[i].volume, PlacedInPlace)
	}

	// Pass 2: place the remaining catalog sounds.
	var legacy []presetTarget
	for _, t := range targets {
		if consumed[t.identifier] {
			continue
		}
		sound, ok := catalog.Lookup(t.identifier)
		if !ok {
			if slot, isSlot := models.ParseSlot(t.identifier); isSlot {
				legacy = append(legacy, presetTarget{identifier: string(slot), volume: t.volume})
				continue
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("sound %q is not in the catalog, skipped", t.identifier))
			continue
		}

		slot, ok := freeSlot(current, written)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no free slot for sound %q, skipped", t.identifier))
			continue
		}
		consumed[t.identifier] = true
		write(slot, sound, t.volume, PlacedByCatalog)
	}

	// Pass 3: older presets addressed slots directly.
	for _, t := range legacy {
		slot := models.SlotID(t.identifier)
		if written(slot) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("legacy entry for %s ignored, slot already assigned", slot))
			continue
		}
		write(slot, current.Slots[slot].Sound, t.volume, PlacedByLegacy)
	}

	// Pass 4: silence everything the preset did not mention.
	for _, slot := range models.Slots {
		if written(slot) {
			continue
		}
		write(slot, current.Slots[slot].Sound, 0, PlacedSilenced)
	}

	return res
}

// canonicalIdentifier maps any alias the catalog accepts (a built-in's
// generated id) to the identifier slots are compared by.
func canonicalIdentifier(identifier string, catalog SoundLookup) string {
	if s, ok := catalog.Lookup(identifier); ok {
		return s.Identifier()
	}
	return identifier
}

// freeSlot picks the first unwritten slot that is currently silent, falling
// back to the first unwritten slot.
func freeSlot(current models.MixState, written func(models.SlotID) bool) (models.SlotID, bool) {
	for _, slot := range models.Slots {
		if !written(slot) && current.Slots[slot].Volume == 0 {
			return slot, true
		}
	}
	for _, slot := range models.Slots {
		if !written(slot) {
			return slot, true
		}
	}
	return "", false
}

// Entries serialises a MixState into preset entries: one per sound with a
// volume above 0, in slot order. When a sound sits in several slots the
// loudest one wins.
func Entries(state models.MixState) []models.PresetEntry {
	var out []models.PresetEntry
	index := make(map[string]int)

	for _, a := range state.Ordered() {
		if a.Volume <= 0 {
			continue
		}
		id := a.Sound.Identifier()
		volume := models.VolumeToUnit(a.Volume)
		if i, ok := index[id]; ok {
			if volume > out[i].Volume {
				out[i].Volume = volume
			}
			continue
		}
		index[id] = len(out)
		out = append(out, models.PresetEntry{SoundIdentifier: id, Volume: volume})
	}
	return out
}
