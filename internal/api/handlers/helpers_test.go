package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/catalog"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/localstore"
	"github.com/oszuidwest/zwfm-soundscape/internal/mixer"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/playback"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/internal/services"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
)

// fakePlayback satisfies both mixer.Engine and Playback.
type fakePlayback struct {
	mu         sync.Mutex
	unlocked   bool
	previewed  []string
	stopped    int
	previewErr error
}

func (p *fakePlayback) Assign(models.SlotAssignment, bool) {}
func (p *fakePlayback) Apply(models.SlotAssignment, bool)  {}
func (p *fakePlayback) ApplyAll(models.MixState)           {}
func (p *fakePlayback) StopAll()                           {}

func (p *fakePlayback) Unlock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocked = true
}

func (p *fakePlayback) Unlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unlocked
}

func (p *fakePlayback) Status() []playback.SlotStatus {
	out := make([]playback.SlotStatus, 0, len(models.Slots))
	for _, slot := range models.Slots {
		out = append(out, playback.SlotStatus{Slot: slot, Status: playback.StatusIdle})
	}
	return out
}

func (p *fakePlayback) Preview(_ context.Context, sound models.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked {
		return apperrors.ErrAudioLocked
	}
	if p.previewErr != nil {
		return p.previewErr
	}
	p.previewed = append(p.previewed, sound.Identifier())
	return nil
}

func (p *fakePlayback) StopPreview() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
}

type memSoundRepo struct {
	mu     sync.Mutex
	sounds map[string]models.Sound
}

func (r *memSoundRepo) Create(_ context.Context, sound *models.Sound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds[sound.ID] = *sound
	return nil
}

func (r *memSoundRepo) GetByID(_ context.Context, id string) (*models.Sound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *memSoundRepo) List(_ context.Context) ([]models.Sound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sound, 0, len(r.sounds))
	for _, s := range r.sounds {
		out = append(out, s)
	}
	return out, nil
}

func (r *memSoundRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sounds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sounds, id)
	return nil
}

type memPresetRepo struct {
	mu      sync.Mutex
	nextID  int64
	presets map[int64]*models.Preset
}

func (r *memPresetRepo) Create(_ context.Context, userID int64, name string) (*models.Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p := &models.Preset{ID: r.nextID, UserID: userID, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.presets[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r *memPresetRepo) GetByID(_ context.Context, id int64) (*models.Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Entries = append([]models.PresetEntry{}, p.Entries...)
	return &cp, nil
}

func (r *memPresetRepo) GetByName(_ context.Context, userID int64, name string) (*models.Preset, error) {
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

func (r *memPresetRepo) ListByUser(_ context.Context, userID int64) ([]models.PresetSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PresetSummary{}
	for _, p := range r.presets {
		if p.UserID == userID {
			out = append(out, models.PresetSummary{ID: p.ID, Name: p.Name, EntryCount: len(p.Entries), UpdatedAt: p.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memPresetRepo) ReplaceEntries(_ context.Context, presetID int64, entries []models.PresetEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[presetID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Entries = append([]models.PresetEntry{}, entries...)
	return nil
}

func (r *memPresetRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.presets, id)
	return nil
}

type directTx struct{}

func (directTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// copyTranscoder stands in for ffmpeg by copying the upload.
type copyTranscoder struct{}

func (copyTranscoder) ConvertToWAV(_ context.Context, inputPath, outputPath string) (float64, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, err
	}
	return 12.5, os.WriteFile(outputPath, data, 0o600)
}

type testEnv struct {
	router   *gin.Engine
	mixer    *mixer.Mixer
	playback *fakePlayback
	catalog  *catalog.Catalog
	sounds   *memSoundRepo
	userID   int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitializeValidators()

	cat, err := catalog.LoadBuiltin(t.TempDir())
	require.NoError(t, err)

	pb := &fakePlayback{}
	store := mixer.NewStore(cat, localstore.NewMemoryStore(), time.Hour)
	m := mixer.New(store, pb, cat, mixer.Options{ResetDuration: 0, ResetSteps: 1})
	m.Start()
	t.Cleanup(m.Close)

	cfg := &config.Config{
		Audio: config.AudioConfig{
			TempPath:      t.TempDir(),
			UploadPath:    t.TempDir(),
			MaxUploadSize: 1 << 20,
		},
	}

	soundRepo := &memSoundRepo{sounds: make(map[string]models.Sound)}
	soundSvc := services.NewSoundService(soundRepo, cat, copyTranscoder{}, cfg)
	presetSvc := services.NewPresetService(&memPresetRepo{presets: make(map[int64]*models.Preset)}, directTx{})

	env := &testEnv{mixer: m, playback: pb, catalog: cat, sounds: soundRepo, userID: 1}
	h := NewHandlers(soundSvc, presetSvc, m, pb, cfg)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetUserContext(c, auth.UserContext{UserID: env.userID, Username: "tester", Role: "admin"})
		c.Next()
	})
	r.GET("/health", h.Health)
	r.GET("/sounds", h.ListSounds)
	r.POST("/sounds", h.UploadSound)
	r.DELETE("/sounds/:id", h.DeleteSound)
	r.GET("/sounds/:id/audio", h.GetSoundAudio)
	r.POST("/sounds/:id/preview", h.PreviewSound)
	r.GET("/presets", h.ListPresets)
	r.POST("/presets", h.SavePreset)
	r.GET("/presets/:id", h.GetPreset)
	r.DELETE("/presets/:id", h.DeletePreset)
	r.POST("/presets/:id/apply", h.ApplyPreset)
	r.GET("/mixer", h.GetMixer)
	r.GET("/mixer/events", h.MixerEvents)
	r.PUT("/mixer/slots/:slot/volume", h.SetSlotVolume)
	r.PUT("/mixer/slots/:slot/sound", h.SetSlotSound)
	r.PUT("/mixer/volumes", h.SetSlotVolumes)
	r.POST("/mixer/mute", h.ToggleMute)
	r.POST("/mixer/reset", h.ResetMixer)
	r.POST("/mixer/unlock", h.UnlockAudio)
	r.POST("/mixer/apply", h.ApplyEntries)
	r.DELETE("/mixer/preview", h.StopPreview)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// mixJSON mirrors the wire form of models.MixState.
type mixJSON struct {
	Muted bool `json:"muted"`
	Slots []struct {
		Slot  string `json:"slot"`
		Sound struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"sound"`
		Volume int `json:"volume"`
	} `json:"slots"`
}

func (m mixJSON) volume(slot string) int {
	for _, s := range m.Slots {
		if s.Slot == slot {
			return s.Volume
		}
	}
	return -1
}

func (m mixJSON) sound(slot string) string {
	for _, s := range m.Slots {
		if s.Slot == slot {
			if s.Sound.Key != "" {
				return s.Sound.Key
			}
			return s.Sound.ID
		}
	}
	return ""
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func problemOf(t *testing.T, w *httptest.ResponseRecorder) utils.ProblemDetail {
	t.Helper()
	return decode[utils.ProblemDetail](t, w)
}
