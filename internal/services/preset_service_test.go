package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

func TestPresetServiceSave(t *testing.T) {
	repo := newFakePresetRepo()
	tx := &fakeTxManager{}
	svc := NewPresetService(repo, tx)
	ctx := context.Background()

	preset, err := svc.Save(ctx, 1, " Evening ", []models.PresetEntry{
		{SoundIdentifier: "rain", Volume: 0.456},
		{SoundIdentifier: "fire", Volume: 1.7},
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening", preset.Name)
	assert.Equal(t, []models.PresetEntry{
		{SoundIdentifier: "rain", Volume: 0.46},
		{SoundIdentifier: "fire", Volume: 1},
	}, preset.Entries)
	assert.Equal(t, 1, tx.count)

	t.Run("same name overwrites", func(t *testing.T) {
		again, err := svc.Save(ctx, 1, "Evening", []models.PresetEntry{{SoundIdentifier: "ocean", Volume: 0.2}})
		require.NoError(t, err)
		assert.Equal(t, preset.ID, again.ID)
		assert.Equal(t, []models.PresetEntry{{SoundIdentifier: "ocean", Volume: 0.2}}, again.Entries)

		list, err := svc.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("other users get their own preset", func(t *testing.T) {
		other, err := svc.Save(ctx, 2, "Evening", nil)
		require.NoError(t, err)
		assert.NotEqual(t, preset.ID, other.ID)
		assert.Empty(t, other.Entries)
	})
}

func TestPresetServiceSaveValidation(t *testing.T) {
	tests := []struct {
		name    string
		preset  string
		entries []models.PresetEntry
		field   string
	}{
		{"blank name", "  ", nil, "name"},
		{"blank sound", "Night", []models.PresetEntry{{SoundIdentifier: " ", Volume: 0.5}}, "entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTxManager{}
			svc := NewPresetService(newFakePresetRepo(), tx)

			_, err := svc.Save(context.Background(), 1, tt.preset, tt.entries)
			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
			assert.Zero(t, tx.count)
		})
	}
}

func TestPresetServiceOwnership(t *testing.T) {
	svc := NewPresetService(newFakePresetRepo(), &fakeTxManager{})
	ctx := context.Background()

	preset, err := svc.Save(ctx, 1, "Mine", []models.PresetEntry{{SoundIdentifier: "wind", Volume: 0.3}})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, preset.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	err = svc.Delete(ctx, 2, preset.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	got, err := svc.Get(ctx, 1, preset.ID)
	require.NoError(t, err)
	assert.Equal(t, preset.Entries, got.Entries)

	require.NoError(t, svc.Delete(ctx, 1, preset.ID))
	_, err = svc.Get(ctx, 1, preset.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPresetServiceListError(t *testing.T) {
	repo := newFakePresetRepo()
	repo.listErr = errors.New("timeout")
	svc := NewPresetService(repo, &fakeTxManager{})

	_, err := svc.List(context.Background(), 1)
	assert.True(t, errors.Is(err, apperrors.ErrDatabaseError))
}
