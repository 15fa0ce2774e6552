// Package services provides the business logic behind the soundscape API.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/catalog"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// Transcoder normalises an uploaded file and reports its duration.
type Transcoder interface {
	ConvertToWAV(ctx context.Context, inputPath, outputPath string) (float64, error)
}

// SoundService is the sound catalog provider: it keeps the in-memory catalog
// and the custom sounds table in step.
type SoundService struct {
	repo       repository.SoundRepository
	catalog    *catalog.Catalog
	transcoder Transcoder
	uploadPath string
	newID      func() string
}

// NewSoundService creates a new sound service instance.
func NewSoundService(repo repository.SoundRepository, cat *catalog.Catalog, transcoder Transcoder, cfg *config.Config) *SoundService {
	return &SoundService{
		repo:       repo,
		catalog:    cat,
		transcoder: transcoder,
		uploadPath: cfg.Audio.UploadPath,
		newID:      uuid.NewString,
	}
}

// UploadSoundRequest contains the data needed to add a custom sound.
type UploadSoundRequest struct {
	Name     string
	Category string
	// TempPath is a validated upload; it is not removed by Upload.
	TempPath  string
	CreatedBy *int64
}

// LoadCustom registers every stored custom sound with the catalog. Sounds
// whose file has disappeared are skipped.
func (s *SoundService) LoadCustom(ctx context.Context) (int, error) {
	const op = "SoundService.LoadCustom"

	sounds, err := s.repo.List(ctx)
	if err != nil {
		return 0, apperrors.TranslateRepoError(op, "Sound", err)
	}

	loaded := 0
	for _, sound := range sounds {
		if _, err := os.Stat(sound.AudioSource); err != nil {
			logger.Warn("Skipping custom sound %s (%s): %v", sound.ID, sound.Name, err)
			continue
		}
		if err := s.catalog.Add(sound); err != nil {
			logger.Warn("Skipping custom sound %s: %v", sound.ID, err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// List returns the whole catalog.
func (s *SoundService) List() []models.Sound {
	return s.catalog.List()
}

// Get resolves a sound by symbolic key or opaque id.
func (s *SoundService) Get(identifier string) (models.Sound, error) {
	sound, ok := s.catalog.Lookup(identifier)
	if !ok {
		return models.Sound{}, apperrors.NotFound("Sound not found").WithInternal("identifier %q", identifier)
	}
	return sound, nil
}

// Upload transcodes an uploaded file into the upload directory, stores it
// and makes it available to the mixer.
func (s *SoundService) Upload(ctx context.Context, req *UploadSoundRequest) (*models.Sound, error) {
	const op = "SoundService.Upload"

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apperrors.InvalidField("name", "Name is required"))
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "custom"
	}

	id := s.newID()
	outputPath := filepath.Join(s.uploadPath, id+".wav")

	duration, err := s.transcoder.ConvertToWAV(ctx, req.TempPath, outputPath)
	if err != nil {
		logger.Error("Failed to process upload %q: %v", name, err)
		_ = os.Remove(outputPath)
		return nil, fmt.Errorf("%s: %w", op, apperrors.AudioProcessing("Audio conversion failed", err))
	}

	sound := &models.Sound{
		ID:              id,
		Name:            name,
		Category:        category,
		AudioSource:     outputPath,
		DurationSeconds: duration,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, sound); err != nil {
		_ = os.Remove(outputPath)
		return nil, apperrors.TranslateRepoError(op, "Sound", err)
	}

	if err := s.catalog.Add(*sound); err != nil {
		if delErr := s.repo.Delete(ctx, id); delErr != nil {
			logger.Error("Failed to remove sound row %s after catalog rejection: %v", id, delErr)
		}
		_ = os.Remove(outputPath)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("Added custom sound %s (%s, %.2fs)", id, name, duration)
	return sound, nil
}

// Delete removes a custom sound and its file. Built-ins cannot be deleted.
func (s *SoundService) Delete(ctx context.Context, id string) error {
	const op = "SoundService.Delete"

	if existing, ok := s.catalog.Lookup(id); ok && existing.BuiltIn {
		return fmt.Errorf("%s: %w", op, apperrors.InvalidInput("Built-in sounds cannot be deleted"))
	}

	sound, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperrors.TranslateRepoError(op, "Sound", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.TranslateRepoError(op, "Sound", err)
	}
	s.catalog.Remove(id)

	if err := os.Remove(sound.AudioSource); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove audio for sound %s: %v", id, err)
	}

	logger.Info("Deleted custom sound %s (%s)", id, sound.Name)
	return nil
}
