package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-soundscape/internal/api"
	"github.com/oszuidwest/zwfm-soundscape/internal/api/handlers"
	"github.com/oszuidwest/zwfm-soundscape/internal/audio"
	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/catalog"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/database"
	"github.com/oszuidwest/zwfm-soundscape/internal/localstore"
	"github.com/oszuidwest/zwfm-soundscape/internal/mixer"
	"github.com/oszuidwest/zwfm-soundscape/internal/playback"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/internal/scheduler"
	"github.com/oszuidwest/zwfm-soundscape/internal/services"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection: %v", err)
		}
	}()

	if cfg.Database.Migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	cat, err := catalog.LoadBuiltin(cfg.Audio.SoundsPath)
	if err != nil {
		return fmt.Errorf("failed to load sound catalog: %w", err)
	}

	local, err := localstore.NewFileStore(cfg.Mixer.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}

	audioSvc := audio.NewService(cfg)
	backend, err := newBackend(cfg, audioSvc)
	if err != nil {
		return err
	}
	engine := playback.NewEngine(backend, playback.Options{
		Unlocked:        cfg.Mixer.Autoplay,
		PreviewDuration: cfg.Mixer.PreviewDuration,
	})
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("Failed to close playback engine: %v", err)
		}
	}()

	soundRepo := repository.NewSoundRepository(db)
	soundSvc := services.NewSoundService(soundRepo, cat, audioSvc, cfg)
	loaded, err := soundSvc.LoadCustom(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load custom sounds: %w", err)
	}
	logger.Info("Sound catalog ready: %d custom sounds", loaded)

	store := mixer.NewStore(cat, local, cfg.Mixer.FlushInterval)
	mix := mixer.New(store, engine, cat, mixer.Options{
		ResetDuration: cfg.Mixer.ResetDuration,
		ResetSteps:    cfg.Mixer.ResetSteps,
	})
	defer mix.Close()
	logger.Info("Restored mix: %s", mix.Start())

	presetSvc := services.NewPresetService(repository.NewPresetRepository(db), repository.NewTxManager(db))

	authService, err := auth.NewService(auth.NewConfig(cfg), repository.NewUserRepository(db))
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	if _, err := authService.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	h := handlers.NewHandlers(soundSvc, presetSvc, mix, engine, cfg)
	router := api.SetupRouter(cfg, authService, h, mix)

	// No write timeout: the event stream and the reset fade hold responses open.
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	cleanup := scheduler.NewUploadCleanupService(soundRepo, cfg)
	cleanup.Start()
	defer cleanup.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting soundscape API server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")
	cleanup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
	return nil
}

func newBackend(cfg *config.Config, decoder playback.Decoder) (playback.Backend, error) {
	if cfg.Audio.Output != config.OutputDevice {
		logger.Info("Audio output disabled, playback is simulated")
		return playback.NullBackend{}, nil
	}
	backend, err := playback.NewOtoBackend(cfg.Audio.SampleRate, decoder, cfg.Mixer.PCMCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	return backend, nil
}
