package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// PresetService saves and loads named presets. Presets are private to the
// user that saved them.
type PresetService struct {
	repo      repository.PresetRepository
	txManager repository.TxManager
}

// NewPresetService creates a new preset service instance.
func NewPresetService(repo repository.PresetRepository, txManager repository.TxManager) *PresetService {
	return &PresetService{
		repo:      repo,
		txManager: txManager,
	}
}

// Save stores entries under name, replacing any preset of the same name
// owned by the user.
func (s *PresetService) Save(ctx context.Context, userID int64, name string, entries []models.PresetEntry) (*models.Preset, error) {
	const op = "PresetService.Save"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apperrors.InvalidField("name", "Name is required"))
	}

	normalized := make([]models.PresetEntry, 0, len(entries))
	for _, e := range entries {
		e.SoundIdentifier = strings.TrimSpace(e.SoundIdentifier)
		if e.SoundIdentifier == "" {
			return nil, fmt.Errorf("%s: %w", op, apperrors.InvalidField("entries", "Every entry needs a sound"))
		}
		e.Volume = models.VolumeToUnit(e.MixerVolume())
		normalized = append(normalized, e)
	}

	var presetID int64
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		preset, err := s.repo.GetByName(ctx, userID, name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			preset, err = s.repo.Create(ctx, userID, name)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		}
		presetID = preset.ID
		return s.repo.ReplaceEntries(ctx, preset.ID, normalized)
	})
	if err != nil {
		return nil, apperrors.TranslateRepoError(op, "Preset", err)
	}

	preset, err := s.repo.GetByID(ctx, presetID)
	if err != nil {
		return nil, apperrors.TranslateRepoError(op, "Preset", err)
	}

	logger.Info("Saved preset %d %q for user %d (%d entries)", preset.ID, preset.Name, userID, len(preset.Entries))
	return preset, nil
}

// Get loads one of the user's presets with its entries.
func (s *PresetService) Get(ctx context.Context, userID, id int64) (*models.Preset, error) {
	const op = "PresetService.Get"

	preset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.TranslateRepoError(op, "Preset", err)
	}
	if preset.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, apperrors.NotFound("Preset not found"))
	}
	return preset, nil
}

// List returns the user's presets ordered by name.
func (s *PresetService) List(ctx context.Context, userID int64) ([]models.PresetSummary, error) {
	const op = "PresetService.List"

	presets, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.TranslateRepoError(op, "Preset", err)
	}
	return presets, nil
}

// Delete removes one of the user's presets.
func (s *PresetService) Delete(ctx context.Context, userID, id int64) error {
	const op = "PresetService.Delete"

	if _, err := s.Get(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.TranslateRepoError(op, "Preset", err)
	}
	return nil
}
