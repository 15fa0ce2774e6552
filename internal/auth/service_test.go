package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/models"
	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	failures map[int64]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User), failures: make(map[int64]int)}
}

func (r *fakeUserRepo) add(t *testing.T, username, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := r.Create(context.Background(), username, username, nil, string(hash), role)
	require.NoError(t, err)
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, username, fullName string, email *string, passwordHash string, role models.UserRole) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return nil, repository.ErrDuplicateKey
		}
	}
	r.nextID++
	u := &models.User{ID: r.nextID, Username: username, FullName: fullName, Email: email, PasswordHash: passwordHash, Role: role}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) RecordLoginSuccess(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LoginCount++
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id]++
	return nil
}

func (r *fakeUserRepo) suspend(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.users[id].SuspendedAt = &now
}

func testConfig() *Config {
	return &Config{
		Method: config.AuthMethodLocal,
		Local:  LocalConfig{Enabled: true, MinPasswordLength: 8},
		Session: SessionConfig{
			StoreType:      config.StoreTypeCookie,
			MaxAge:         3600,
			CookieName:     "soundscape_session",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSameSite: config.SameSiteLax,
			SecretKey:      "test-secret-key-with-enough-bytes",
		},
		AllowedOrigins: "https://mixer.example.org, https://admin.example.org",
	}
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	svc, err := NewService(testConfig(), users)
	require.NoError(t, err)
	return svc, users
}

// testRouter exposes login, an authenticated probe and a sounds write route.
func testRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(svc.SessionMiddleware())
	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if err := svc.LocalLogin(c, req.Username, req.Password); err != nil {
			if errors.Is(err, errSuspended) {
				c.Status(http.StatusForbidden)
				return
			}
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusCreated)
	})
	protected := r.Group("")
	protected.Use(svc.Middleware())
	protected.GET("/me", func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})
	protected.POST("/sounds", svc.RequirePermission(ResourceSounds, ActionWrite), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	protected.POST("/logout", func(c *gin.Context) {
		if err := svc.Logout(c); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func login(t *testing.T, r *gin.Engine, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestLocalLoginAndMiddleware(t *testing.T) {
	svc, users := newTestService(t)
	user := users.add(t, "dj", "correct horse", models.RoleListener)
	r := testRouter(svc)

	w := login(t, r, "dj", "wrong password")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, users.failures[user.ID])

	w = login(t, r, "nobody", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = login(t, r, "dj", "correct horse")
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withCookies(httptest.NewRequest(http.MethodGet, "/me", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	var me UserContext
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, user.ID, me.UserID)
	assert.Equal(t, "listener", me.Role)
	assert.Equal(t, "local", me.AuthMethod)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginCount)
}

func TestMiddlewareRejectsMissingSession(t *testing.T) {
	svc, _ := newTestService(t)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Session realm="Soundscape API"`, w.Header().Get("WWW-Authenticate"))
}

func TestSuspendedUser(t *testing.T) {
	svc, users := newTestService(t)
	user := users.add(t, "host", "long enough", models.RoleEditor)
	r := testRouter(svc)

	w := login(t, r, "host", "long enough")
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()

	users.suspend(user.ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withCookies(httptest.NewRequest(http.MethodGet, "/me", nil), cookies))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = login(t, r, "host", "long enough")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		role   models.UserRole
		status int
	}{
		{models.RoleAdmin, http.StatusNoContent},
		{models.RoleEditor, http.StatusNoContent},
		{models.RoleListener, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			svc, users := newTestService(t)
			users.add(t, "user", "password123", tt.role)
			r := testRouter(svc)

			w := login(t, r, "user", "password123")
			require.Equal(t, http.StatusCreated, w.Code)

			w2 := httptest.NewRecorder()
			r.ServeHTTP(w2, withCookies(httptest.NewRequest(http.MethodPost, "/sounds", nil), w.Result().Cookies()))
			assert.Equal(t, tt.status, w2.Code)
		})
	}
}

func TestPolicies(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		role    string
		obj     Resource
		act     Action
		allowed bool
	}{
		{"admin", ResourceSounds, ActionWrite, true},
		{"admin", ResourceMixer, ActionControl, true},
		{"editor", ResourceSounds, ActionWrite, true},
		{"listener", ResourceSounds, ActionRead, true},
		{"listener", ResourceSounds, ActionWrite, false},
		{"listener", ResourcePresets, ActionWrite, true},
		{"listener", ResourceMixer, ActionControl, true},
		{"stranger", ResourceSounds, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+string(tt.obj)+" "+string(tt.act), func(t *testing.T) {
			ok, err := svc.enforcer.Enforce(tt.role, string(tt.obj), string(tt.act))
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, ok)
		})
	}
}

func TestStaticAdapterIsReadOnly(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.enforcer.AddPolicy("listener", "sounds", "write")
	assert.Error(t, err)
}

func TestLogoutClearsSession(t *testing.T) {
	svc, users := newTestService(t)
	users.add(t, "dj", "correct horse", models.RoleListener)
	r := testRouter(svc)

	w := login(t, r, "dj", "correct horse")
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, withCookies(httptest.NewRequest(http.MethodPost, "/logout", nil), w.Result().Cookies()))
	require.Equal(t, http.StatusNoContent, w2.Code)

	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, withCookies(httptest.NewRequest(http.MethodGet, "/me", nil), w2.Result().Cookies()))
	assert.Equal(t, http.StatusUnauthorized, w3.Code)
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("creates admin when empty", func(t *testing.T) {
		svc, users := newTestService(t)

		created, err := svc.EnsureAdmin(context.Background(), "admin", "supersecret")
		require.NoError(t, err)
		assert.True(t, created)

		admin, err := users.GetByUsername(context.Background(), "admin")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("supersecret")))
	})

	t.Run("skips when users exist", func(t *testing.T) {
		svc, users := newTestService(t)
		users.add(t, "someone", "password123", models.RoleListener)

		created, err := svc.EnsureAdmin(context.Background(), "admin", "supersecret")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("skips without password", func(t *testing.T) {
		svc, _ := newTestService(t)

		created, err := svc.EnsureAdmin(context.Background(), "admin", "")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.EnsureAdmin(context.Background(), "admin", "short")
		assert.Error(t, err)
	})
}

func TestSanitizeEmailToUsername(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"john.doe@example.com", "john_doe"},
		{"jo@radio.nl", "jo_radio"},
		{"a+b@x.org", "a_b"},
		{"weird name!@host", "weird_name_"},
		{"no-at-sign", "no-at-sign"},
		{strings.Repeat("x", 150) + "@example.com", strings.Repeat("x", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeEmailToUsername(tt.email))
		})
	}
}

func TestEnsureUniqueUsername(t *testing.T) {
	svc, users := newTestService(t)
	users.add(t, "jane", "password123", models.RoleListener)
	users.add(t, "jane_1", "password123", models.RoleListener)

	name, err := svc.ensureUniqueUsername(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "jane_2", name)

	name, err = svc.ensureUniqueUsername(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", name)
}

func TestFindOrCreateOAuthUser(t *testing.T) {
	svc, users := newTestService(t)
	users.add(t, "john_doe", "password123", models.RoleEditor)

	user, err := svc.findOrCreateOAuthUser(context.Background(), "john.doe@example.com", "John Doe", "")
	require.NoError(t, err)
	assert.Equal(t, "john_doe_1", user.Username)
	assert.Equal(t, models.RoleListener, user.Role)

	again, err := svc.findOrCreateOAuthUser(context.Background(), "john.doe@example.com", "John Doe", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	users.suspend(user.ID)
	_, err = svc.findOrCreateOAuthUser(context.Background(), "john.doe@example.com", "John Doe", "")
	assert.ErrorIs(t, err, apperrors.Forbidden(""))
}

func TestIsAllowedFrontendURL(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://mixer.example.org/after-login", true},
		{"https://admin.example.org", true},
		{"https://evil.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.allowed, svc.isAllowedFrontendURL(tt.url))
		})
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Session.SecretKey = ""

	_, err := NewService(cfg, newFakeUserRepo())
	assert.Error(t, err)
}
