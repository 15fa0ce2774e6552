package models

import (
	"math"
	"time"
)

// PresetEntry is one sound-keyed volume in a saved preset. Volume uses the
// unit scale [0,1].
type PresetEntry struct {
	SoundIdentifier string  `db:"sound_identifier" json:"sound" binding:"required,notblank,max=100"`
	Volume          float64 `db:"volume" json:"volume"`
}

// MixerVolume converts the entry volume to the mixer scale.
func (e PresetEntry) MixerVolume() int {
	return UnitToVolume(e.Volume)
}

// UnitToVolume maps a unit-scale volume onto [0,100] as round(clamp(v,0,1)*100).
func UnitToVolume(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return MinVolume
	}
	if v >= 1 {
		return MaxVolume
	}
	return int(math.Round(v * MaxVolume))
}

// VolumeToUnit maps a mixer volume onto the unit scale.
func VolumeToUnit(v int) float64 {
	return float64(ClampVolume(v)) / MaxVolume
}

// Preset is a named, saved set of entries owned by a user.
type Preset struct {
	ID        int64         `db:"id" json:"id"`
	UserID    int64         `db:"user_id" json:"user_id"`
	Name      string        `db:"name" json:"name"`
	Entries   []PresetEntry `db:"-" json:"entries"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// PresetSummary is the list view of a preset.
type PresetSummary struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	EntryCount int       `db:"entry_count" json:"entry_count"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
