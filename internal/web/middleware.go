package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/vision-portal/internal/auth"
)

// usernameKey is the context key carrying the authenticated username
const usernameKey = "auth.username"

// sessionAuth verifies the session cookie and stores the username in the
// request context. Handlers never read the cookie themselves.
func (s *Server) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		username, ok := s.auth.Verify(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Session expired or invalid",
			})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// currentUser returns the authenticated username set by sessionAuth
func currentUser(c *gin.Context) string {
	return c.GetString(usernameKey)
}
