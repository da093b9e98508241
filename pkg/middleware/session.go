package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/models"
)

// Context keys set by RequireSession.
const (
	UserKey   = "user"
	ClaimsKey = "claims"
)

// SessionSource exposes the signed-in user of the local session.
type SessionSource interface {
	CurrentUser() *models.User
}

// RequireSession rejects requests while no user is signed in. On success the
// user is stored under UserKey and a claims map (sub, email, userType) under
// ClaimsKey for the rate limiters.
func RequireSession(src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := src.CurrentUser()
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.Set(UserKey, u)
		c.Set(ClaimsKey, map[string]interface{}{
			"sub":      u.UID,
			"email":    u.Email,
			"userType": string(u.UserType),
		})
		c.Next()
	}
}

// RequireUserType lets through only signed-in users of one of the given types.
// It must run after RequireSession.
func RequireUserType(types ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		for _, t := range types {
			if u.UserType == t {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// CurrentUser returns the user RequireSession stored on c, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// limitKey prefers the authenticated subject, falling back to the client IP.
func limitKey(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok2 := v.(map[string]interface{}); ok2 {
			if sub, ok3 := cm["sub"].(string); ok3 && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
