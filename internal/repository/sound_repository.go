package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// SoundRepository stores uploaded (custom) sounds. Built-in sounds are not
// persisted.
type SoundRepository interface {
	Create(ctx context.Context, sound *models.Sound) error
	GetByID(ctx context.Context, id string) (*models.Sound, error)
	List(ctx context.Context) ([]models.Sound, error)
	Delete(ctx context.Context, id string) error
}

type soundRepository struct {
	*BaseRepository[models.Sound]
}

// NewSoundRepository creates a new sound repository.
func NewSoundRepository(db *sqlx.DB) SoundRepository {
	return &soundRepository{
		BaseRepository: NewBaseRepository[models.Sound](db, "sounds"),
	}
}

// Create inserts a sound. The caller assigns the id.
func (r *soundRepository) Create(ctx context.Context, sound *models.Sound) error {
	q := r.getQueryable(ctx)

	_, err := q.ExecContext(ctx,
		"INSERT INTO sounds (id, name, category, file_path, duration_seconds, created_by) VALUES (?, ?, ?, ?, ?, ?)",
		sound.ID, sound.Name, sound.Category, sound.AudioSource, sound.DurationSeconds, sound.CreatedBy,
	)
	return ParseDBError(err)
}

// GetByID retrieves a sound by id.
func (r *soundRepository) GetByID(ctx context.Context, id string) (*models.Sound, error) {
	return r.BaseRepository.GetByID(ctx, id)
}

// List returns every custom sound, oldest first.
func (r *soundRepository) List(ctx context.Context) ([]models.Sound, error) {
	q := r.getQueryable(ctx)

	var sounds []models.Sound
	if err := q.SelectContext(ctx, &sounds, "SELECT * FROM sounds ORDER BY created_at, id"); err != nil {
		return nil, ParseDBError(err)
	}
	return sounds, nil
}

// Delete removes a sound by id.
func (r *soundRepository) Delete(ctx context.Context, id string) error {
	return r.BaseRepository.Delete(ctx, id)
}
