package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/services"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
)

// ListSounds returns the whole catalog, built-ins first.
func (h *Handlers) ListSounds(c *gin.Context) {
	utils.List(c, h.soundSvc.List())
}

// UploadSound accepts a multipart upload (file, name, category) and adds it
// to the catalog as a custom sound.
func (h *Handlers) UploadSound(c *gin.Context) {
	tempPath, cleanup, err := utils.ValidateAndSaveAudioFile(c, "file", h.config.Audio.TempPath, h.config.Audio.MaxUploadSize)
	if err != nil {
		handleServiceError(c, err, "Sound")
		return
	}
	defer cleanup()

	req := &services.UploadSoundRequest{
		Name:     c.PostForm("name"),
		Category: c.PostForm("category"),
		TempPath: tempPath,
	}
	if userID, ok := auth.UserID(c); ok {
		req.CreatedBy = &userID
	}

	sound, err := h.soundSvc.Upload(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, "Sound")
		return
	}

	utils.CreatedWithLocation(c, sound.ID, "/api/v1/sounds", sound)
}

// DeleteSound removes a custom sound. Slots playing it keep playing until
// their sound is changed.
func (h *Handlers) DeleteSound(c *gin.Context) {
	if err := h.soundSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "Sound")
		return
	}
	utils.NoContent(c)
}

// GetSoundAudio streams the audio file of a sound.
func (h *Handlers) GetSoundAudio(c *gin.Context) {
	sound, err := h.soundSvc.Get(c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Sound")
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.File(sound.AudioSource)
}

// PreviewSound plays a sound once over the mix for a short audition.
func (h *Handlers) PreviewSound(c *gin.Context) {
	sound, err := h.soundSvc.Get(c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Sound")
		return
	}
	if err := h.playback.Preview(c.Request.Context(), sound); err != nil {
		handleServiceError(c, err, "Preview")
		return
	}
	c.JSON(http.StatusAccepted, utils.MessageResponse{Message: "Preview started"})
}

// StopPreview ends a running preview.
func (h *Handlers) StopPreview(c *gin.Context) {
	h.playback.StopPreview()
	utils.NoContent(c)
}
