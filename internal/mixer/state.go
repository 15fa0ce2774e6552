package mixer

import (
	"encoding/json"
	"fmt"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// StateKey is the local store key holding the persisted mix.
const StateKey = "soundscape.mix"

const stateVersion = 1

// persistedState is the on-disk shape of a MixState:
//
//	{"version":1,"muted":false,"slots":{"slot1":{"sound":"ocean","volume":40}}}
type persistedState struct {
	Version int                      `json:"version"`
	Muted   bool                     `json:"muted"`
	Slots   map[string]persistedSlot `json:"slots"`
}

type persistedSlot struct {
	Sound  string `json:"sound"`
	Volume int    `json:"volume"`
}

func encodeState(state models.MixState) (string, error) {
	p := persistedState{
		Version: stateVersion,
		Muted:   state.Muted,
		Slots:   make(map[string]persistedSlot, len(state.Slots)),
	}
	for _, a := range state.Ordered() {
		p.Slots[string(a.Slot)] = persistedSlot{Sound: a.Sound.Identifier(), Volume: a.Volume}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeState rebuilds a MixState from its persisted form. Slots that are
// missing or reference sounds no longer in the catalog fall back to the slot
// default at volume 0 and are reported as warnings. An unreadable document is
// an error.
func decodeState(data string, catalog SoundCatalog) (models.MixState, []string, error) {
	var p persistedState
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.MixState{}, nil, fmt.Errorf("corrupt mix state: %w", err)
	}
	if p.Version != stateVersion {
		return models.MixState{}, nil, fmt.Errorf("unsupported mix state version %d", p.Version)
	}

	var warnings []string
	state := models.NewMixState()
	state.Muted = p.Muted

	for _, slot := range models.Slots {
		fallback := models.SlotAssignment{Slot: slot, Sound: catalog.Default(slot)}

		stored, ok := p.Slots[string(slot)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s missing from stored mix", slot))
			state.Slots[slot] = fallback
			continue
		}
		sound, ok := catalog.Lookup(stored.Sound)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s references unknown sound %q", slot, stored.Sound))
			state.Slots[slot] = fallback
			continue
		}
		state.Slots[slot] = models.SlotAssignment{
			Slot:   slot,
			Sound:  sound,
			Volume: models.ClampVolume(stored.Volume),
		}
	}

	return state, warnings, nil
}
