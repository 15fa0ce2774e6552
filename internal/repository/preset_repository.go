package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// PresetRepository stores named presets and their entries.
type PresetRepository interface {
	Create(ctx context.Context, userID int64, name string) (*models.Preset, error)
	GetByID(ctx context.Context, id int64) (*models.Preset, error)
	GetByName(ctx context.Context, userID int64, name string) (*models.Preset, error)
	ListByUser(ctx context.Context, userID int64) ([]models.PresetSummary, error)
	// ReplaceEntries swaps the entries of a preset and bumps updated_at.
	ReplaceEntries(ctx context.Context, presetID int64, entries []models.PresetEntry) error
	Delete(ctx context.Context, id int64) error
}

type presetRepository struct {
	*BaseRepository[models.Preset]
}

// NewPresetRepository creates a new preset repository.
func NewPresetRepository(db *sqlx.DB) PresetRepository {
	return &presetRepository{
		BaseRepository: NewBaseRepository[models.Preset](db, "presets"),
	}
}

// Create inserts an empty preset.
func (r *presetRepository) Create(ctx context.Context, userID int64, name string) (*models.Preset, error) {
	q := r.getQueryable(ctx)

	result, err := q.ExecContext(ctx, "INSERT INTO presets (user_id, name) VALUES (?, ?)", userID, name)
	if err != nil {
		return nil, ParseDBError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a preset with its entries in saved order.
func (r *presetRepository) GetByID(ctx context.Context, id int64) (*models.Preset, error) {
	preset, err := r.BaseRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.withEntries(ctx, preset)
}

// GetByName retrieves a user's preset by name.
func (r *presetRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Preset, error) {
	preset, err := r.FindBy(ctx, "user_id = ? AND name = ?", userID, name)
	if err != nil {
		return nil, err
	}
	return r.withEntries(ctx, preset)
}

func (r *presetRepository) withEntries(ctx context.Context, preset *models.Preset) (*models.Preset, error) {
	q := r.getQueryable(ctx)

	entries := []models.PresetEntry{}
	err := q.SelectContext(ctx, &entries,
		"SELECT sound_identifier, volume FROM preset_entries WHERE preset_id = ? ORDER BY position",
		preset.ID,
	)
	if err != nil {
		return nil, ParseDBError(err)
	}
	preset.Entries = entries
	return preset, nil
}

// ListByUser lists a user's presets by name.
func (r *presetRepository) ListByUser(ctx context.Context, userID int64) ([]models.PresetSummary, error) {
	q := r.getQueryable(ctx)

	summaries := []models.PresetSummary{}
	err := q.SelectContext(ctx, &summaries, `
		SELECT p.id, p.name, p.updated_at, COUNT(e.id) AS entry_count
		FROM presets p
		LEFT JOIN preset_entries e ON e.preset_id = p.id
		WHERE p.user_id = ?
		GROUP BY p.id, p.name, p.updated_at
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, ParseDBError(err)
	}
	return summaries, nil
}

// ReplaceEntries deletes the existing entries and inserts the new ones in
// order. Run it inside a transaction.
func (r *presetRepository) ReplaceEntries(ctx context.Context, presetID int64, entries []models.PresetEntry) error {
	q := r.getQueryable(ctx)

	if _, err := q.ExecContext(ctx, "DELETE FROM preset_entries WHERE preset_id = ?", presetID); err != nil {
		return ParseDBError(err)
	}

	if len(entries) > 0 {
		placeholders := make([]string, 0, len(entries))
		args := make([]any, 0, len(entries)*4)
		for i, e := range entries {
			placeholders = append(placeholders, "(?, ?, ?, ?)")
			args = append(args, presetID, e.SoundIdentifier, e.Volume, i)
		}
		query := "INSERT INTO preset_entries (preset_id, sound_identifier, volume, position) VALUES " +
			strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return ParseDBError(err)
		}
	}

	_, err := q.ExecContext(ctx, "UPDATE presets SET updated_at = NOW() WHERE id = ?", presetID)
	return ParseDBError(err)
}

// Delete removes a preset; entries cascade.
func (r *presetRepository) Delete(ctx context.Context, id int64) error {
	return r.BaseRepository.Delete(ctx, id)
}
