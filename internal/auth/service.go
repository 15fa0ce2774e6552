package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
	"github.com/oszuidwest/zwfm-soundscape/internal/utils"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

const maxUsernameLength = 100

var (
	errInvalidCredentials = apperrors.Unauthorized("Invalid username or password")
	errSuspended          = apperrors.Forbidden("Account is suspended")
	usernameUnsafe        = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// Service handles login, sessions and authorization.
type Service struct {
	config   *Config
	users    repository.UserRepository
	enforcer *casbin.Enforcer
	sessions SessionStore
}

// NewService creates a new authentication service. OIDC discovery runs
// immediately when SSO is enabled.
func NewService(cfg *Config, users repository.UserRepository) (*Service, error) {
	s := &Service{
		config: cfg,
		users:  users,
	}

	if cfg.Method.SupportsOIDC() {
		if err := s.initializeOIDC(); err != nil {
			return nil, fmt.Errorf("failed to initialize OIDC: %w", err)
		}
	}

	store, err := NewGinSessionStore(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	s.sessions = store

	enforcer, err := newEnforcer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Casbin: %w", err)
	}
	s.enforcer = enforcer

	return s, nil
}

// IsLocalEnabled reports whether username/password login is enabled.
func (s *Service) IsLocalEnabled() bool {
	return s.config.Method.SupportsLocal()
}

// IsOAuthEnabled reports whether OIDC login is enabled.
func (s *Service) IsOAuthEnabled() bool {
	return s.config.Method.SupportsOIDC()
}

func (s *Service) initializeOIDC() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, s.config.OIDC.ProviderURL)
	if err != nil {
		return err
	}

	s.config.OIDC.Provider = provider
	s.config.OIDC.OAuth2Config = &oauth2.Config{
		ClientID:     s.config.OIDC.ClientID,
		ClientSecret: s.config.OIDC.ClientSecret,
		RedirectURL:  s.config.OIDC.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       s.config.OIDC.Scopes,
	}
	return nil
}

func newEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	return casbin.NewEnforcer(m, newStaticAdapter(defaultPolicies))
}

// EnsureAdmin creates the bootstrap admin when there are no users at all.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, apperrors.TranslateRepoError("Service.EnsureAdmin", "User", err)
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		logger.Warn("No users exist and SOUNDSCAPE_ADMIN_PASSWORD is empty; nobody can log in locally")
		return false, nil
	}
	if len(password) < s.config.Local.MinPasswordLength {
		return false, fmt.Errorf("admin password must be at least %d characters", s.config.Local.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	if _, err := s.users.Create(ctx, username, "Administrator", nil, string(hash), models.RoleAdmin); err != nil {
		return false, apperrors.TranslateRepoError("Service.EnsureAdmin", "User", err)
	}

	logger.Info("Created bootstrap admin %q", username)
	return true, nil
}

// SessionMiddleware attaches sessions to every request.
func (s *Service) SessionMiddleware() gin.HandlerFunc {
	return s.sessions.Middleware()
}

// Middleware rejects requests without a live session and loads the user.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := s.sessions.Get(c)

		userID, ok := SessionUserID(session)
		if !ok {
			utils.ProblemAuthentication(c, "Authentication required")
			c.Abort()
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), userID)
		if err != nil || user.IsSuspended() {
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				logger.Error("Failed to load session user %d: %v", userID, err)
			}
			session.Clear()
			if saveErr := session.Save(c); saveErr != nil {
				logger.Error("Failed to save session during cleanup: %v", saveErr)
			}
			utils.ProblemAuthentication(c, "Invalid session")
			c.Abort()
			return
		}

		method, _ := SessionString(session, SessKeyAuthMethod)
		SetUserContext(c, UserContext{
			UserID:     user.ID,
			Username:   user.Username,
			Role:       string(user.Role),
			AuthMethod: method,
		})

		c.Next()
	}
}

// RequirePermission returns middleware that enforces role-based access control.
func (s *Service) RequirePermission(obj Resource, act Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := UserRole(c)
		if !ok {
			logger.Error("RequirePermission: user role not found in context")
			utils.ProblemAuthentication(c, "Authentication required")
			c.Abort()
			return
		}

		allowed, err := s.enforcer.Enforce(role, string(obj), string(act))
		if err != nil {
			logger.Error("Permission check failed for %s %s/%s: %v", role, obj, act, err)
			utils.ProblemInternalServer(c, "Permission check failed")
			c.Abort()
			return
		}
		if !allowed {
			utils.ProblemForbidden(c, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// LocalLogin checks a username and password and starts a session.
func (s *Service) LocalLogin(c *gin.Context, username, password string) error {
	if !s.config.Method.SupportsLocal() {
		return apperrors.InvalidInput("Local authentication is disabled")
	}

	ctx := c.Request.Context()
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("Failed to load user %q: %v", username, err)
		}
		return errInvalidCredentials
	}

	if user.IsSuspended() {
		return errSuspended
	}

	if user.PasswordHash == "" {
		return errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if updateErr := s.users.RecordLoginFailure(ctx, user.ID); updateErr != nil {
			logger.Error("Failed to update login failure stats: %v", updateErr)
		}
		return errInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		logger.Error("Failed to update login stats: %v", err)
	}

	return s.CreateSession(c, user.ID, "local")
}

// StartOAuthFlow redirects the browser to the OIDC provider.
func (s *Service) StartOAuthFlow(c *gin.Context) {
	if !s.config.Method.SupportsOIDC() {
		utils.ProblemBadRequest(c, "OAuth authentication is disabled")
		return
	}

	state, err := generateState()
	if err != nil {
		logger.Error("Failed to generate OAuth state: %v", err)
		utils.ProblemInternalServer(c, "Failed to initiate OAuth flow")
		return
	}

	session := s.sessions.Get(c)
	session.Set(string(SessKeyOAuthState), state)

	if frontendURL := c.Query("frontend_url"); frontendURL != "" {
		if s.isAllowedFrontendURL(frontendURL) {
			session.Set(string(SessKeyFrontendURL), frontendURL)
		} else {
			logger.Warn("Rejected invalid frontend_url: %s", frontendURL)
		}
	}
	if err := session.Save(c); err != nil {
		logger.Error("Failed to save OAuth session: %v", err)
		utils.ProblemInternalServer(c, "Session error")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, s.config.OIDC.OAuth2Config.AuthCodeURL(state))
}

// FinishOAuthFlow handles the provider callback and starts a session.
func (s *Service) FinishOAuthFlow(c *gin.Context) error {
	session := s.sessions.Get(c)

	savedState, ok := SessionString(session, SessKeyOAuthState)
	if !ok || c.Query("state") != savedState {
		return fmt.Errorf("invalid state")
	}
	session.Delete(string(SessKeyOAuthState))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	token, err := s.config.OIDC.OAuth2Config.Exchange(ctx, c.Query("code"))
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return fmt.Errorf("no id_token in response")
	}

	verifier := s.config.OIDC.Provider.Verifier(&oidc.Config{ClientID: s.config.OIDC.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Email == "" {
		return fmt.Errorf("identity provider did not return an email address")
	}

	user, err := s.findOrCreateOAuthUser(ctx, claims.Email, claims.Name, claims.PreferredUsername)
	if err != nil {
		return err
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		logger.Error("Failed to update login stats: %v", err)
	}
	return s.CreateSession(c, user.ID, "oidc")
}

// findOrCreateOAuthUser matches on email; unknown users become listeners.
func (s *Service) findOrCreateOAuthUser(ctx context.Context, email, fullName, preferredUsername string) (*models.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.IsSuspended() {
			return nil, errSuspended
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	username, err := s.determineOAuthUsername(ctx, preferredUsername, email)
	if err != nil {
		return nil, err
	}
	if fullName == "" {
		fullName = username
	}

	user, err := s.users.Create(ctx, username, fullName, &email, "", models.RoleListener)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info("Created listener %q from SSO login", username)
	return user, nil
}

func (s *Service) determineOAuthUsername(ctx context.Context, preferredUsername, email string) (string, error) {
	if preferredUsername == "" || strings.ContainsAny(preferredUsername, "@.") {
		source := preferredUsername
		if source == "" {
			source = email
		}
		return s.ensureUniqueUsername(ctx, sanitizeEmailToUsername(source))
	}
	return s.ensureUniqueUsername(ctx, usernameUnsafe.ReplaceAllString(preferredUsername, "_"))
}

// sanitizeEmailToUsername turns the local part of an address into a username,
// borrowing the first domain label when the local part is shorter than three
// characters.
func sanitizeEmailToUsername(email string) string {
	local, domain, found := strings.Cut(email, "@")
	username := usernameUnsafe.ReplaceAllString(local, "_")

	if len(username) < 3 && found {
		label, _, _ := strings.Cut(domain, ".")
		username = username + "_" + usernameUnsafe.ReplaceAllString(label, "_")
	}

	if len(username) > maxUsernameLength {
		username = username[:maxUsernameLength]
	}
	return username
}

// ensureUniqueUsername appends _1, _2, ... until the name is free.
func (s *Service) ensureUniqueUsername(ctx context.Context, base string) (string, error) {
	username := base
	for counter := 1; counter <= 100; counter++ {
		taken, err := s.users.IsUsernameTaken(ctx, username)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !taken {
			return username, nil
		}

		suffix := fmt.Sprintf("_%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > maxUsernameLength {
			trimmed = trimmed[:maxUsernameLength-len(suffix)]
		}
		username = trimmed + suffix
	}
	return fmt.Sprintf("%s_%d", base, time.Now().Unix()), nil
}

// Logout clears the session.
func (s *Service) Logout(c *gin.Context) error {
	session := s.sessions.Get(c)
	session.Clear()
	if err := session.Save(c); err != nil {
		logger.Error("Failed to save session during logout: %v", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Session returns the session of the request.
func (s *Service) Session(c *gin.Context) Session {
	return s.sessions.Get(c)
}

// CreateSession logs the user in on this browser.
func (s *Service) CreateSession(c *gin.Context, userID int64, authMethod string) error {
	session := s.sessions.Get(c)
	setSessionUser(session, userID, authMethod)
	return session.Save(c)
}

// User returns the account behind an authenticated request.
func (s *Service) User(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.TranslateRepoError("Service.User", "User", err)
	}
	return user, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// isAllowedFrontendURL reports whether the URL starts with an allowed origin.
func (s *Service) isAllowedFrontendURL(urlStr string) bool {
	if urlStr == "" || s.config.AllowedOrigins == "" {
		return false
	}
	for _, origin := range strings.Split(s.config.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" && strings.HasPrefix(urlStr, origin) {
			return true
		}
	}
	return false
}
