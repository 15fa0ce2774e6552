package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/validation"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// GetIDParam extracts a positive numeric :id parameter. It responds with 400
// and returns false when the parameter is invalid.
func GetIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ProblemBadRequest(c, "Invalid ID parameter")
		return 0, false
	}
	return id, true
}

// GetSlotParam extracts the :slot parameter. It responds with 404 and
// returns false for slots outside the mixer.
func GetSlotParam(c *gin.Context) (models.SlotID, bool) {
	slot, ok := models.ParseSlot(c.Param("slot"))
	if !ok {
		ProblemNotFound(c, "Slot")
		return "", false
	}
	return slot, true
}

// ValidateAndSaveAudioFile validates the multipart field and copies it into
// tempDir. The returned cleanup removes the temporary copy.
func ValidateAndSaveAudioFile(c *gin.Context, fieldName, tempDir string, maxSize int64) (tempPath string, cleanup func(), err error) {
	header, _ := c.FormFile(fieldName)
	if report := validation.AudioUpload(header, fieldName, maxSize); !report.OK() {
		return "", nil, report.Err()
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	name := fmt.Sprintf("%s_%s", uuid.New().String(), validation.SanitizeFilename(header.Filename))
	tempPath = filepath.Join(tempDir, name)

	if err := saveFileToPath(file, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return "", nil, err
	}

	cleanup = func() {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove temp upload %s: %v", tempPath, err)
		}
	}
	return tempPath, cleanup, nil
}

// saveFileToPath writes an uploaded file to dst.
func saveFileToPath(file multipart.File, dst string) error {
	// #nosec G304 - dst is built from a uuid and a sanitized name
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error("Failed to close output file: %v", err)
		}
	}()

	_, err = io.Copy(out, file)
	return err
}

// BindAndValidate binds the JSON body into req. Validation failures are
// answered with 422 and malformed bodies with 400.
func BindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			ProblemValidationError(c, "The request contains invalid data", formatValidationErrors(validationErrors))
			return false
		}
		ProblemBadRequest(c, "Invalid JSON format")
		return false
	}
	return true
}

// formatValidationErrors converts validator errors into client-facing messages.
func formatValidationErrors(validationErrors validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		var message string
		switch e.Tag() {
		case "required", "notblank":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			if param == "1" {
				message = fmt.Sprintf("%s cannot be empty", field)
			} else {
				message = fmt.Sprintf("%s must be at least %s", field, param)
			}
		case "max":
			message = fmt.Sprintf("%s cannot exceed %s", field, param)
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "lte":
			message = fmt.Sprintf("%s must be at most %s", field, param)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, param)
		case "slot":
			message = fmt.Sprintf("%s must be one of slot1 to slot%d", field, models.NumSlots)
		default:
			message = fmt.Sprintf("%s failed validation (%s)", field, e.Tag())
		}
		out = append(out, ValidationError{Field: field, Message: message})
	}
	return out
}
