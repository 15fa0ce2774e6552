package models

import (
	"encoding/json"
	"fmt"
)

// SlotID names one fixed mixing channel.
type SlotID string

// NumSlots is the size of the mixer topology.
const NumSlots = 6

// Volume bounds on the mixer scale.
const (
	MinVolume = 0
	MaxVolume = 100
)

// Slots lists every slot in mixer order.
var Slots = []SlotID{"slot1", "slot2", "slot3", "slot4", "slot5", "slot6"}

// IsValid reports whether the slot belongs to the topology.
func (s SlotID) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the zero-based position of the slot, or -1.
func (s SlotID) Index() int {
	for i, slot := range Slots {
		if slot == s {
			return i
		}
	}
	return -1
}

// ParseSlot converts a string into a SlotID.
func ParseSlot(s string) (SlotID, bool) {
	slot := SlotID(s)
	return slot, slot.IsValid()
}

// ClampVolume limits a volume to [MinVolume, MaxVolume].
func ClampVolume(v int) int {
	switch {
	case v < MinVolume:
		return MinVolume
	case v > MaxVolume:
		return MaxVolume
	default:
		return v
	}
}

// SlotAssignment is the live state of one slot.
type SlotAssignment struct {
	Slot   SlotID `json:"slot"`
	Sound  Sound  `json:"sound"`
	Volume int    `json:"volume"`
}

// Gain returns the effective player gain in [0,1].
func (a SlotAssignment) Gain(muted bool) float64 {
	if muted {
		return 0
	}
	return float64(ClampVolume(a.Volume)) / MaxVolume
}

// Audible reports whether the slot should produce sound.
func (a SlotAssignment) Audible(muted bool) bool {
	return a.Volume > 0 && !muted
}

// MixState is every slot assignment plus the global mute flag.
type MixState struct {
	Slots map[SlotID]SlotAssignment
	Muted bool
}

// NewMixState returns an empty state with an allocated slot map.
func NewMixState() MixState {
	return MixState{Slots: make(map[SlotID]SlotAssignment, NumSlots)}
}

// Assignment returns the assignment for slot.
func (m MixState) Assignment(slot SlotID) SlotAssignment {
	return m.Slots[slot]
}

// Ordered returns the assignments in slot order.
func (m MixState) Ordered() []SlotAssignment {
	out := make([]SlotAssignment, 0, len(Slots))
	for _, slot := range Slots {
		if a, ok := m.Slots[slot]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a copy that shares no map with m.
func (m MixState) Clone() MixState {
	c := MixState{Slots: make(map[SlotID]SlotAssignment, len(m.Slots)), Muted: m.Muted}
	for k, v := range m.Slots {
		c.Slots[k] = v
	}
	return c
}

// String renders the state compactly for logs, e.g. "slot1=ocean@40 slot2=rain@0 muted".
func (m MixState) String() string {
	out := ""
	for i, a := range m.Ordered() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%s@%d", a.Slot, a.Sound.Identifier(), a.Volume)
	}
	if m.Muted {
		out += " muted"
	}
	return out
}

// MarshalJSON renders the slots as an ordered list.
func (m MixState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Muted bool             `json:"muted"`
		Slots []SlotAssignment `json:"slots"`
	}{
		Muted: m.Muted,
		Slots: m.Ordered(),
	})
}
