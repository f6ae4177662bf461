// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the identity gate. Credential verification happens at
// the edge (gateway or session service); by the time a request reaches this
// process its identity is carried in a trusted header. The middleware only
// extracts that identity, stores it in the Gin context, and rejects requests
// that arrive without one.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// userIDKey is the Gin context key under which the caller identity is stored.
	userIDKey = "userID"
	// userIDHeader carries the gateway-verified identity.
	userIDHeader = "X-User-ID"
)

// UserID returns the authenticated caller's identity, or "" when the request
// passed through no identity gate.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// extractIdentity reads the caller identity from X-User-ID, falling back to a
// bearer token subject for clients that only forward Authorization.
func extractIdentity(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(userIDHeader)); id != "" {
		return id
	}
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// RequireAuth rejects unidentified requests with 401 and stores the identity
// for downstream handlers otherwise.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := extractIdentity(c)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "unauthorized",
					"message": "authentication required",
				},
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// OptionalAuth stores the identity when present but never rejects. Used on
// routes that serve both anonymous and signed-in traffic.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := extractIdentity(c); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}
