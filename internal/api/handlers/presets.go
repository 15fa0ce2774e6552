package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
)

// SavePresetRequest names a preset. Without entries the current mix is saved.
type SavePresetRequest struct {
	Name    string                `json:"name" binding:"required,notblank,max=100"`
	Entries *[]models.PresetEntry `json:"entries" binding:"omitempty,max=64,dive"`
}

// currentUserID responds with 401 when the request carries no user.
func currentUserID(c *gin.Context) (int64, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		utils.ProblemAuthentication(c, "Authentication required")
		return 0, false
	}
	return id, true
}

// ListPresets returns the caller's presets.
func (h *Handlers) ListPresets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	presets, err := h.presetSvc.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, "Preset")
		return
	}
	utils.List(c, presets)
}

// GetPreset returns one preset with its entries.
func (h *Handlers) GetPreset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := utils.GetIDParam(c)
	if !ok {
		return
	}

	preset, err := h.presetSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Preset")
		return
	}
	utils.Success(c, preset)
}

// SavePreset stores a preset, overwriting one of the same name.
func (h *Handlers) SavePreset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SavePresetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var entries []models.PresetEntry
	if req.Entries != nil {
		entries = *req.Entries
	} else {
		entries = h.mixer.PresetEntries()
	}

	preset, err := h.presetSvc.Save(c.Request.Context(), userID, req.Name, entries)
	if err != nil {
		handleServiceError(c, err, "Preset")
		return
	}
	utils.CreatedWithLocation(c, preset.ID, "/api/v1/presets", preset)
}

// DeletePreset removes one of the caller's presets.
func (h *Handlers) DeletePreset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := utils.GetIDParam(c)
	if !ok {
		return
	}

	if err := h.presetSvc.Delete(c.Request.Context(), userID, id); err != nil {
		handleServiceError(c, err, "Preset")
		return
	}
	utils.NoContent(c)
}

// ApplyPreset loads a stored preset into the mixer.
func (h *Handlers) ApplyPreset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := utils.GetIDParam(c)
	if !ok {
		return
	}

	preset, err := h.presetSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Preset")
		return
	}

	res := h.mixer.ApplyPreset(preset.Entries)
	utils.Success(c, newApplyResponse(h.mixer.State(), res))
}
