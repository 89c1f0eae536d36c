// Session guard middleware.
//
// RequireAuth resolves the caller's identity from a bearer session token and
// stores it in the Gin context for handlers further down the chain. Every
// route that touches owned data must sit behind it. Rejections are uniform:
// a missing, malformed, expired, or orphaned token always yields the same
// 401 body, leaking nothing about which part failed.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/realcheck/studio-backend/internal/domain"
)

const (
	// userIDKey is the Gin context key holding the authenticated user id.
	userIDKey = "userID"
	// userKey is the Gin context key holding the full identity record.
	userKey = "user"
)

// Identifier resolves a session token to a fresh user record.
// Implemented by services.AuthService.
type Identifier interface {
	Identify(ctx context.Context, token string) (*domain.User, error)
}

// RequireAuth returns a middleware enforcing a valid bearer session.
func RequireAuth(ident Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c)
			return
		}
		u, err := ident.Identify(c.Request.Context(), token)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(userIDKey, u.ID)
		c.Set(userKey, u)
		c.Next()
	}
}

// UserFrom returns the authenticated identity stored by RequireAuth, or nil
// when the request did not pass the guard.
func UserFrom(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// unauthorized aborts with the uniform rejection body.
func unauthorized(c *gin.Context) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthorized",
		"message":    "authentication required",
	})
}
