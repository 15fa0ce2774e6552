package services

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
)

type fakeSoundRepo struct {
	mu        sync.Mutex
	sounds    map[string]models.Sound
	createErr error
}

func newFakeSoundRepo(sounds ...models.Sound) *fakeSoundRepo {
	r := &fakeSoundRepo{sounds: make(map[string]models.Sound)}
	for _, s := range sounds {
		r.sounds[s.ID] = s
	}
	return r
}

func (r *fakeSoundRepo) Create(_ context.Context, sound *models.Sound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.sounds[sound.ID]; ok {
		return repository.ErrDuplicateKey
	}
	r.sounds[sound.ID] = *sound
	return nil
}

func (r *fakeSoundRepo) GetByID(_ context.Context, id string) (*models.Sound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSoundRepo) List(_ context.Context) ([]models.Sound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sound, 0, len(r.sounds))
	for _, s := range r.sounds {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSoundRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sounds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sounds, id)
	return nil
}

// fakeTranscoder copies the input to the output path.
type fakeTranscoder struct {
	duration float64
	err      error
	calls    int
}

func (f *fakeTranscoder) ConvertToWAV(_ context.Context, inputPath, outputPath string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return 0, err
	}
	return f.duration, nil
}

type fakePresetRepo struct {
	mu      sync.Mutex
	nextID  int64
	presets map[int64]*models.Preset
	listErr error
}

func newFakePresetRepo() *fakePresetRepo {
	return &fakePresetRepo{nextID: 1, presets: make(map[int64]*models.Preset)}
}

func (r *fakePresetRepo) Create(_ context.Context, userID int64, name string) (*models.Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.presets {
		if p.UserID == userID && p.Name == name {
			return nil, repository.ErrDuplicateKey
		}
	}
	now := time.Now()
	p := &models.Preset{ID: r.nextID, UserID: userID, Name: name, CreatedAt: now, UpdatedAt: now}
	r.presets[p.ID] = p
	r.nextID++
	cp := *p
	return &cp, nil
}

func (r *fakePresetRepo) GetByID(_ context.Context, id int64) (*models.Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Entries = append([]models.PresetEntry(nil), p.Entries...)
	return &cp, nil
}

func (r *fakePresetRepo) GetByName(_ context.Context, userID int64, name string) (*models.Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.presets {
		if p.UserID == userID && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePresetRepo) ListByUser(_ context.Context, userID int64) ([]models.PresetSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []models.PresetSummary{}
	for _, p := range r.presets {
		if p.UserID == userID {
			out = append(out, models.PresetSummary{ID: p.ID, Name: p.Name, EntryCount: len(p.Entries), UpdatedAt: p.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakePresetRepo) ReplaceEntries(_ context.Context, presetID int64, entries []models.PresetEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[presetID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Entries = append([]models.PresetEntry(nil), entries...)
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakePresetRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.presets, id)
	return nil
}

// fakeTxManager runs fn directly and counts transactions.
type fakeTxManager struct {
	count int
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.count++
	return fn(ctx)
}
