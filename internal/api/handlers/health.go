package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
	"github.com/oszuidwest/zwfm-soundscape/pkg/version"
)

// Health reports that the API is up.
func (h *Handlers) Health(c *gin.Context) {
	utils.Success(c, HealthResponse{
		Status:  "ok",
		Service: "soundscape-api",
		Version: version.Version,
	})
}
