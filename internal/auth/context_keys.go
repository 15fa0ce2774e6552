package auth

import "github.com/gin-gonic/gin"

// ContextKey is a typed key for request context values.
type ContextKey string

// Keys set by Middleware for authenticated requests.
const (
	CtxKeyUserID     ContextKey = "user_id"
	CtxKeyUsername   ContextKey = "username"
	CtxKeyUserRole   ContextKey = "user_role"
	CtxKeyAuthMethod ContextKey = "auth_method"
)

// UserContext is the authenticated caller of a request.
type UserContext struct {
	UserID     int64
	Username   string
	Role       string
	AuthMethod string
}

// SetUserContext stores the caller on the request.
func SetUserContext(c *gin.Context, u UserContext) {
	c.Set(string(CtxKeyUserID), u.UserID)
	c.Set(string(CtxKeyUsername), u.Username)
	c.Set(string(CtxKeyUserRole), u.Role)
	c.Set(string(CtxKeyAuthMethod), u.AuthMethod)
}

// CurrentUser returns the caller set by Middleware.
func CurrentUser(c *gin.Context) (UserContext, bool) {
	id, ok := UserID(c)
	if !ok {
		return UserContext{}, false
	}
	u := UserContext{UserID: id}
	u.Username, _ = getContextString(c, CtxKeyUsername)
	u.Role, _ = getContextString(c, CtxKeyUserRole)
	u.AuthMethod, _ = getContextString(c, CtxKeyAuthMethod)
	return u, true
}

// UserID returns the caller's user id.
func UserID(c *gin.Context) (int64, bool) {
	val, exists := c.Get(string(CtxKeyUserID))
	if !exists {
		return 0, false
	}
	return toInt64(val)
}

// UserRole returns the caller's role.
func UserRole(c *gin.Context) (string, bool) {
	return getContextString(c, CtxKeyUserRole)
}

func getContextString(c *gin.Context, key ContextKey) (string, bool) {
	val, exists := c.Get(string(key))
	if !exists {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// toInt64 accepts the integer shapes a session codec may hand back.
func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
