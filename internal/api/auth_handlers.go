package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/api/handlers"
	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/auth"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// SessionTeardown ends the mix of a session that is logging out.
type SessionTeardown interface {
	Teardown() models.MixState
}

// AuthHandlers provides HTTP handlers for authentication endpoints including
// local login, OAuth flows, session management, and configuration discovery.
type AuthHandlers struct {
	authService *auth.Service
	frontendURL string
	teardown    SessionTeardown
}

// NewAuthHandlers creates a new authentication handler with the provided services.
// The frontendURL is used for OAuth redirects after successful authentication.
func NewAuthHandlers(authService *auth.Service, frontendURL string, teardown SessionTeardown) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		frontendURL: frontendURL,
		teardown:    teardown,
	}
}

// LoginRequest is the body of a local login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles local username/password authentication via JSON POST.
// Returns 201 Created on success.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ProblemBadRequest(c, "Invalid login request format")
		return
	}

	if err := h.authService.LocalLogin(c, req.Username, req.Password); err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			logger.Error("Login failed: %v", err)
			utils.ProblemInternalServer(c, "Failed to create session")
			return
		}
		switch appErr.Code {
		case apperrors.CodeForbidden:
			utils.ProblemForbidden(c, appErr.Message)
		case apperrors.CodeInvalidInput:
			utils.ProblemBadRequest(c, appErr.Message)
		default:
			utils.ProblemAuthentication(c, "Invalid username or password")
		}
		return
	}

	c.JSON(http.StatusCreated, utils.MessageResponse{Message: "Login successful"})
}

// StartOAuthFlow initiates OAuth/OIDC authentication by redirecting to the provider.
func (h *AuthHandlers) StartOAuthFlow(c *gin.Context) {
	h.authService.StartOAuthFlow(c)
}

// HandleOAuthCallback processes the OAuth provider callback and redirects to
// the frontend with a success or error status.
func (h *AuthHandlers) HandleOAuthCallback(c *gin.Context) {
	session := h.authService.Session(c)
	frontendURL, ok := auth.SessionFrontendURL(session)
	if !ok || frontendURL == "" {
		if h.frontendURL == "" {
			utils.ProblemInternalServer(c, "No frontend URL configured")
			return
		}
		frontendURL = h.frontendURL
	}

	if err := h.authService.FinishOAuthFlow(c); err != nil {
		c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?error="+url.QueryEscape(err.Error()))
		return
	}

	auth.ClearSessionOAuth(session)
	if err := session.Save(c); err != nil {
		logger.Error("Failed to save session after cleanup: %v", err)
	}

	c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?login=success")
}

// Logout destroys the session and tears the mix down: pending writes are
// flushed, playback stops and the stored mix returns to the defaults.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authService.Logout(c); err != nil {
		utils.ProblemInternalServer(c, "Failed to logout")
		return
	}
	if h.teardown != nil {
		h.teardown.Teardown()
	}
	c.Status(http.StatusNoContent)
}

// GetCurrentUser returns the authenticated user's profile.
func (h *AuthHandlers) GetCurrentUser(c *gin.Context) {
	current, ok := auth.CurrentUser(c)
	if !ok {
		utils.ProblemAuthentication(c, "Authentication required")
		return
	}

	user, err := h.authService.User(c.Request.Context(), current.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			utils.ProblemNotFound(c, "User")
			return
		}
		logger.Error("Failed to load user %d: %v", current.UserID, err)
		utils.ProblemInternalServer(c, "Failed to load user")
		return
	}

	utils.Success(c, handlers.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		Email:       user.Email,
		Role:        user.Role,
		AuthMethod:  current.AuthMethod,
		LastLoginAt: user.LastLoginAt,
	})
}

// GetAuthConfig returns the available authentication methods and the OIDC
// start URL.
func (h *AuthHandlers) GetAuthConfig(c *gin.Context) {
	response := handlers.AuthConfigResponse{
		Methods: []string{},
	}

	if h.authService.IsLocalEnabled() {
		response.Methods = append(response.Methods, "local")
	}
	if h.authService.IsOAuthEnabled() {
		response.Methods = append(response.Methods, "oidc")
		response.OAuthURL = "/api/v1/session/oauth/start"
	}

	c.JSON(http.StatusOK, response)
}
