// Package handlers provides HTTP request handlers for all API endpoints.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/mixer"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/playback"
	"github.com/oszuidwest/zwfm-soundscape/internal/services"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// Playback is the part of the playback engine exposed over HTTP.
type Playback interface {
	Unlock()
	Unlocked() bool
	Status() []playback.SlotStatus
	Preview(ctx context.Context, sound models.Sound) error
	StopPreview()
}

// Handlers contains all the dependencies needed by the API handlers.
type Handlers struct {
	soundSvc  *services.SoundService
	presetSvc *services.PresetService
	mixer     *mixer.Mixer
	playback  Playback
	config    *config.Config
}

// NewHandlers creates a new Handlers instance with all required dependencies.
func NewHandlers(
	soundSvc *services.SoundService,
	presetSvc *services.PresetService,
	m *mixer.Mixer,
	pb Playback,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		soundSvc:  soundSvc,
		presetSvc: presetSvc,
		mixer:     m,
		playback:  pb,
		config:    cfg,
	}
}

// handleServiceError converts apperrors.Error to appropriate HTTP responses.
// Internal error details are logged but never exposed to clients.
func handleServiceError(c *gin.Context, err error, resource string) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.Error("Unhandled error for %s: %v", resource, err)
		utils.ProblemInternalServer(c, fmt.Sprintf("Failed to process %s", resource))
		return
	}

	if appErr.Internal != "" {
		logger.Debug("%s error: %s (internal: %s)", resource, appErr.Message, appErr.Internal)
	}
	if appErr.Err != nil {
		logger.Error("%s underlying error: %v", resource, appErr.Err)
	}

	switch appErr.Code {
	case apperrors.CodeNotFound:
		utils.ProblemNotFound(c, resource)
	case apperrors.CodeDuplicate:
		utils.ProblemDuplicate(c, resource)
	case apperrors.CodeDependencyExists:
		utils.ProblemCustom(c, utils.ProblemTypeDependencyConstraint, "Dependency Constraint", http.StatusConflict, appErr.Message)
	case apperrors.CodeValidation, apperrors.CodeDataTooLong:
		field := appErr.Field
		if field == "" {
			field = resource
		}
		utils.ProblemValidationError(c, "The request contains invalid data", []utils.ValidationError{
			{Field: field, Message: appErr.Message},
		})
	case apperrors.CodeInvalidInput:
		utils.ProblemBadRequest(c, appErr.Message)
	case apperrors.CodeAudioProcessing:
		utils.ProblemExtended(c, http.StatusUnprocessableEntity, appErr.Message, appErr.Code.String(),
			"Upload a valid audio file")
	case apperrors.CodeAudioLocked:
		utils.ProblemExtended(c, http.StatusConflict, appErr.Message, appErr.Code.String(),
			"Unlock playback with POST /api/v1/mixer/unlock")
	case apperrors.CodeUnauthorized:
		utils.ProblemAuthentication(c, appErr.Message)
	case apperrors.CodeForbidden:
		utils.ProblemForbidden(c, appErr.Message)
	default:
		utils.ProblemInternalServer(c, fmt.Sprintf("Failed to process %s", resource))
	}
}
