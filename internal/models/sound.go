// Package models defines the domain types shared across the soundscape service.
package models

import "time"

// Sound is a catalog entry. Built-in sounds are addressed by their symbolic
// Key, uploaded sounds by their opaque ID.
type Sound struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Category        string    `db:"category" json:"category"`
	AudioSource     string    `db:"file_path" json:"-"`
	BuiltIn         bool      `db:"-" json:"built_in"`
	Key             string    `db:"-" json:"key,omitempty"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
	CreatedBy       *int64    `db:"created_by" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Identifier returns the stable identifier used in presets and persisted
// mix state: the symbolic key for built-ins, the opaque id otherwise.
func (s Sound) Identifier() string {
	if s.BuiltIn {
		return s.Key
	}
	return s.ID
}

// IsZero reports whether the sound is unset.
func (s Sound) IsZero() bool {
	return s.ID == "" && s.Key == ""
}
