// Package scheduler runs periodic housekeeping in the background.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// UploadCleanupService deletes abandoned upload files: temp copies left by
// interrupted requests and processed files without a sounds row.
type UploadCleanupService struct {
	repo       repository.SoundRepository
	tempPath   string
	uploadPath string
	// interval between runs
	interval time.Duration
	// minAge protects files that may still be in use by a running upload
	minAge time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewUploadCleanupService creates the service. Call Start to run it.
func NewUploadCleanupService(repo repository.SoundRepository, cfg *config.Config) *UploadCleanupService {
	return &UploadCleanupService{
		repo:       repo,
		tempPath:   cfg.Audio.TempPath,
		uploadPath: cfg.Audio.UploadPath,
		interval:   time.Hour,
		minAge:     time.Hour,
		done:       make(chan struct{}),
	}
}

// Start runs a cleanup immediately and then on every tick.
func (s *UploadCleanupService) Start() {
	logger.Info("Starting upload cleanup service (runs every %s)", s.interval)

	s.runOnce()

	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runOnce()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop ends the background loop. It is safe to call more than once.
func (s *UploadCleanupService) Stop() {
	s.stopOnce.Do(func() {
		logger.Info("Stopping upload cleanup service")
		close(s.done)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
}

func (s *UploadCleanupService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	s.cleanup(ctx)
}

func (s *UploadCleanupService) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-s.minAge)

	tempRemoved, tempBytes := removeOlderThan(s.tempPath, cutoff, nil)

	var orphansRemoved int
	var orphanBytes int64
	sounds, err := s.repo.List(ctx)
	if err != nil {
		logger.Error("Failed to list sounds for orphan cleanup: %v", err)
	} else {
		known := make(map[string]struct{}, len(sounds))
		for _, sound := range sounds {
			known[filepath.Base(sound.AudioSource)] = struct{}{}
		}
		orphansRemoved, orphanBytes = removeOlderThan(s.uploadPath, cutoff, known)
	}

	if tempRemoved > 0 || orphansRemoved > 0 {
		logger.Info("Upload cleanup complete: %d temp files (%.1f MB), %d orphaned sounds (%.1f MB)",
			tempRemoved, float64(tempBytes)/1024/1024,
			orphansRemoved, float64(orphanBytes)/1024/1024)
	}
}

// removeOlderThan deletes regular files in dir modified before cutoff whose
// name is not in keep.
func removeOlderThan(dir string, cutoff time.Time, keep map[string]struct{}) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to read directory %s: %v", dir, err)
		}
		return 0, 0
	}

	var removed int
	var bytesFreed int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to remove %s: %v", fullPath, err)
			continue
		}
		removed++
		bytesFreed += info.Size()
	}
	return removed, bytesFreed
}
