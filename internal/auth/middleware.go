package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the session token.
const SessionCookie = "session"

const identityKey = "auth.identity"

// CurrentUser attaches the identity of a valid session to the request. A
// missing or invalid session leaves the request anonymous.
func CurrentUser(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err == nil && raw != "" {
			if identity, err := issuer.Verify(raw); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the caller set by CurrentUser, or nil.
func IdentityFrom(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}
