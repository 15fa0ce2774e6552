package handlers

import (
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/mixer"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/playback"
)

// AuthConfigResponse represents the authentication configuration response.
type AuthConfigResponse struct {
	Methods  []string `json:"methods"`
	OAuthURL string   `json:"oauth_url,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// UserResponse is the profile of the logged-in user.
type UserResponse struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	FullName    string          `json:"full_name"`
	Email       *string         `json:"email"`
	Role        models.UserRole `json:"role"`
	AuthMethod  string          `json:"auth_method,omitempty"`
	LastLoginAt *time.Time      `json:"last_login_at"`
}

// MixerResponse is the full mixer view: the stored mix plus what the
// engine is doing with it.
type MixerResponse struct {
	Mix      models.MixState       `json:"mix"`
	Unlocked bool                  `json:"unlocked"`
	Playback []playback.SlotStatus `json:"playback"`
}

// ApplyResponse reports the outcome of applying preset entries.
type ApplyResponse struct {
	Mix        models.MixState                   `json:"mix"`
	Placements map[models.SlotID]mixer.Placement `json:"placements"`
	Warnings   []string                          `json:"warnings"`
}

func newApplyResponse(mix models.MixState, res mixer.Result) ApplyResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	placements := res.Placements
	if placements == nil {
		placements = map[models.SlotID]mixer.Placement{}
	}
	return ApplyResponse{Mix: mix, Placements: placements, Warnings: warnings}
}
