package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinSessionKey is the gin.Context key the authenticated session is stored under.
const GinSessionKey = "session"

// GinRequireAuth rejects requests without a valid bearer access token. The
// session is attached to the request context and to the gin.Context.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := auth.authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthorized",
			})
			return
		}

		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sess))
		c.Set(GinSessionKey, sess)
		c.Next()
	}
}
