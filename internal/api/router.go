// Package api wires the HTTP routes of the soundscape API.
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/api/handlers"
	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
)

// SetupRouter configures and returns the main API router with all routes and middleware.
func SetupRouter(cfg *config.Config, authService *auth.Service, h *handlers.Handlers, teardown SessionTeardown) *gin.Engine {
	utils.InitializeValidators()
	authHandlers := NewAuthHandlers(authService, cfg.Auth.FrontendURL, teardown)

	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	// Session middleware - must be first
	r.Use(authService.SessionMiddleware())
	r.Use(corsMiddleware(cfg))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/auth/config", authHandlers.GetAuthConfig)

		authGroup := v1.Group("/session")
		{
			authGroup.POST("/login", authHandlers.Login)
			authGroup.GET("/oauth/start", authHandlers.StartOAuthFlow)
			authGroup.GET("/oauth/callback", authHandlers.HandleOAuthCallback)
		}

		protected := v1.Group("")
		protected.Use(authService.Middleware())
		{
			protected.DELETE("/session", authHandlers.Logout)
			protected.GET("/session", authHandlers.GetCurrentUser)

			// Sound catalog
			protected.GET("/sounds", authService.RequirePermission(auth.ResourceSounds, auth.ActionRead), h.ListSounds)
			protected.POST("/sounds", authService.RequirePermission(auth.ResourceSounds, auth.ActionWrite), h.UploadSound)
			protected.DELETE("/sounds/:id", authService.RequirePermission(auth.ResourceSounds, auth.ActionWrite), h.DeleteSound)
			protected.GET("/sounds/:id/audio", authService.RequirePermission(auth.ResourceSounds, auth.ActionRead), h.GetSoundAudio)
			protected.POST("/sounds/:id/preview", authService.RequirePermission(auth.ResourceMixer, auth.ActionControl), h.PreviewSound)

			// Presets
			protected.GET("/presets", authService.RequirePermission(auth.ResourcePresets, auth.ActionRead), h.ListPresets)
			protected.POST("/presets", authService.RequirePermission(auth.ResourcePresets, auth.ActionWrite), h.SavePreset)
			protected.GET("/presets/:id", authService.RequirePermission(auth.ResourcePresets, auth.ActionRead), h.GetPreset)
			protected.DELETE("/presets/:id", authService.RequirePermission(auth.ResourcePresets, auth.ActionWrite), h.DeletePreset)
			protected.POST("/presets/:id/apply", authService.RequirePermission(auth.ResourceMixer, auth.ActionControl), h.ApplyPreset)

			// Mixer
			mixerGroup := protected.Group("/mixer")
			{
				mixerGroup.GET("", authService.RequirePermission(auth.ResourceMixer, auth.ActionRead), h.GetMixer)
				mixerGroup.GET("/events", authService.RequirePermission(auth.ResourceMixer, auth.ActionRead), h.MixerEvents)

				control := mixerGroup.Group("", authService.RequirePermission(auth.ResourceMixer, auth.ActionControl))
				control.PUT("/slots/:slot/volume", h.SetSlotVolume)
				control.PUT("/slots/:slot/sound", h.SetSlotSound)
				control.PUT("/volumes", h.SetSlotVolumes)
				control.POST("/mute", h.ToggleMute)
				control.POST("/reset", h.ResetMixer)
				control.POST("/unlock", h.UnlockAudio)
				control.POST("/apply", h.ApplyEntries)
				control.DELETE("/preview", h.StopPreview)
			}
		}
	}

	r.GET("/health", h.Health)
	v1.GET("/health", h.Health)

	return r
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// If no allowed origins are configured, disable CORS (secure by default)
		if cfg.Server.AllowedOrigins == "" {
			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}
			c.Next()
			return
		}

		if isAllowedOrigin(origin, cfg.Server.AllowedOrigins) {
			// Delete any existing CORS headers that might be set by proxies
			c.Writer.Header().Del("Access-Control-Allow-Origin")
			c.Writer.Header().Del("Access-Control-Allow-Credentials")
			c.Writer.Header().Del("Access-Control-Allow-Headers")
			c.Writer.Header().Del("Access-Control-Allow-Methods")

			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the comma-separated list of allowed origins
func isAllowedOrigin(origin string, allowedOrigins string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range strings.Split(allowedOrigins, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	return false
}
