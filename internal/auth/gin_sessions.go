package auth

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"

	"github.com/oszuidwest/zwfm-soundscape/internal/config"
)

// GinSessionStore implements SessionStore on gin-contrib/sessions.
type GinSessionStore struct {
	name  string
	store sessions.Store
}

// NewGinSessionStore creates the cookie or memory backed store.
func NewGinSessionStore(cfg SessionConfig) (*GinSessionStore, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required for %s session store", cfg.StoreType)
	}

	var store sessions.Store
	switch cfg.StoreType {
	case config.StoreTypeCookie:
		store = cookie.NewStore([]byte(cfg.SecretKey))
	default:
		store = memstore.NewStore([]byte(cfg.SecretKey))
	}

	store.Options(sessions.Options{
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.CookieSameSite.ToHTTP(),
	})

	return &GinSessionStore{name: cfg.CookieName, store: store}, nil
}

// Middleware attaches the session to each request.
func (s *GinSessionStore) Middleware() gin.HandlerFunc {
	return sessions.Sessions(s.name, s.store)
}

// Get returns the session of the request.
func (s *GinSessionStore) Get(c *gin.Context) Session {
	return &ginSession{session: sessions.Default(c)}
}

type ginSession struct {
	session sessions.Session
}

func (s *ginSession) Get(key string) any {
	return s.session.Get(key)
}

func (s *ginSession) Set(key string, value any) {
	s.session.Set(key, value)
}

func (s *ginSession) Delete(key string) {
	s.session.Delete(key)
}

func (s *ginSession) Clear() {
	s.session.Clear()
}

func (s *ginSession) Save(_ *gin.Context) error {
	return s.session.Save()
}
