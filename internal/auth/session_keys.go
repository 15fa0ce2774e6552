// Package auth provides login, sessions and role-based access control.
package auth

// SessionKey is a typed key for session values.
type SessionKey string

const (
	SessKeyUserID      SessionKey = "user_id"
	SessKeyAuthMethod  SessionKey = "auth_method"
	SessKeyOAuthState  SessionKey = "oauth_state"
	SessKeyFrontendURL SessionKey = "frontend_url"
)

// setSessionUser records a successful login.
func setSessionUser(session Session, userID int64, authMethod string) {
	session.Set(string(SessKeyUserID), userID)
	session.Set(string(SessKeyAuthMethod), authMethod)
}

// SessionUserID returns the logged-in user id, if any.
func SessionUserID(session Session) (int64, bool) {
	val := session.Get(string(SessKeyUserID))
	if val == nil {
		return 0, false
	}
	return toInt64(val)
}

// SessionString returns a string value from the session.
func SessionString(session Session, key SessionKey) (string, bool) {
	s, ok := session.Get(string(key)).(string)
	return s, ok
}

// SessionFrontendURL returns where an OIDC login should land.
func SessionFrontendURL(session Session) (string, bool) {
	return SessionString(session, SessKeyFrontendURL)
}

// ClearSessionOAuth removes the values only needed during the OIDC round trip.
func ClearSessionOAuth(session Session) {
	session.Delete(string(SessKeyOAuthState))
	session.Delete(string(SessKeyFrontendURL))
}
