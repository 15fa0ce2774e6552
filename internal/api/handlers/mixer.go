package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
)

// eventKeepAlive is how often an idle event stream sends a ping.
const eventKeepAlive = 25 * time.Second

// SetVolumeRequest sets the volume of one slot. Out-of-range values are clamped.
type SetVolumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

// SetVolumesRequest sets several slot volumes at once.
type SetVolumesRequest struct {
	Volumes map[string]int `json:"volumes" binding:"required,min=1,dive,keys,slot,endkeys"`
}

// SetSoundRequest assigns a catalog sound to a slot.
type SetSoundRequest struct {
	Sound string `json:"sound" binding:"required,notblank"`
}

// ApplyEntriesRequest applies preset entries that were never saved.
type ApplyEntriesRequest struct {
	Entries []models.PresetEntry `json:"entries" binding:"required,max=64,dive"`
}

// GetMixer returns the mix together with the engine's view of every slot.
func (h *Handlers) GetMixer(c *gin.Context) {
	utils.Success(c, MixerResponse{
		Mix:      h.mixer.State(),
		Unlocked: h.playback.Unlocked(),
		Playback: h.playback.Status(),
	})
}

// SetSlotVolume changes the volume of one slot.
func (h *Handlers) SetSlotVolume(c *gin.Context) {
	slot, ok := utils.GetSlotParam(c)
	if !ok {
		return
	}

	var req SetVolumeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	assignment, err := h.mixer.SetVolume(slot, *req.Volume)
	if err != nil {
		handleServiceError(c, err, "Slot")
		return
	}
	utils.Success(c, assignment)
}

// SetSlotVolumes changes several slot volumes in slot order.
func (h *Handlers) SetSlotVolumes(c *gin.Context) {
	var req SetVolumesRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	for _, slot := range models.Slots {
		volume, ok := req.Volumes[string(slot)]
		if !ok {
			continue
		}
		if _, err := h.mixer.SetVolume(slot, volume); err != nil {
			handleServiceError(c, err, "Slot")
			return
		}
	}
	utils.Success(c, h.mixer.State())
}

// SetSlotSound assigns a sound to one slot.
func (h *Handlers) SetSlotSound(c *gin.Context) {
	slot, ok := utils.GetSlotParam(c)
	if !ok {
		return
	}

	var req SetSoundRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	assignment, err := h.mixer.SetSound(slot, req.Sound)
	if err != nil {
		handleServiceError(c, err, "Sound")
		return
	}
	utils.Success(c, assignment)
}

// ToggleMute flips the global mute.
func (h *Handlers) ToggleMute(c *gin.Context) {
	h.mixer.ToggleMute()
	utils.Success(c, h.mixer.State())
}

// ResetMixer fades every slot to silence. The response is sent once the
// fade has finished or the client has gone away.
func (h *Handlers) ResetMixer(c *gin.Context) {
	utils.Success(c, h.mixer.Reset(c.Request.Context()))
}

// UnlockAudio records the user gesture that allows playback to start.
func (h *Handlers) UnlockAudio(c *gin.Context) {
	h.playback.Unlock()
	h.GetMixer(c)
}

// ApplyEntries reconciles unsaved preset entries into the mix.
func (h *Handlers) ApplyEntries(c *gin.Context) {
	var req ApplyEntriesRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res := h.mixer.ApplyPreset(req.Entries)
	utils.Success(c, newApplyResponse(h.mixer.State(), res))
}

// MixerEvents streams every mix change as a server-sent "mix" event. A slow
// client only ever sees the latest state.
func (h *Handlers) MixerEvents(c *gin.Context) {
	updates := make(chan models.MixState, 1)
	unsubscribe := h.mixer.OnMixChanged(func(state models.MixState) {
		for {
			select {
			case updates <- state:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()

	c.SSEvent("mix", h.mixer.State())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state := <-updates:
			c.SSEvent("mix", state)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
