package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionIDKey     = "sessionId"
	sessionCookie    = "gap_session"
	sessionMaxAgeSec = 30 * 24 * 60 * 60
)

// Session assigns an anonymous session identity via a long-lived cookie.
// A request without a valid session cookie gets a fresh UUID.
func Session(env string) gin.HandlerFunc {
	secure := env == "production" || env == "staging"
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sessionID, sessionMaxAgeSec, "/", "", secure, true)
		}
		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID stored by Session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}
