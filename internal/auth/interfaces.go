package auth

import "github.com/gin-gonic/gin"

// SessionStore hands out the session of a request.
type SessionStore interface {
	Get(c *gin.Context) Session
	// Middleware must run before any handler that touches the session.
	Middleware() gin.HandlerFunc
}

// Session is the key/value data of one browser session.
type Session interface {
	Get(key string) any
	Set(key string, value any)
	Delete(key string)
	Clear()
	Save(c *gin.Context) error
}
