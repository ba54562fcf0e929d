package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const viewerIdKey = "viewer_id"

// RequireViewer extracts the authenticated viewer id from the "sub" header
// set by the auth layer in front of this service (session/JWT verification
// is handled there, not here) and rejects requests without one.
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.Request.Header.Get("sub")
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing viewer identity"})
			return
		}
		c.Set(viewerIdKey, sub)
		c.Next()
	}
}

// ViewerID returns the viewer id stored by RequireViewer. Empty when the
// middleware didn't run (auth bypassed in local debugging), in which case
// the "sub" header is read directly.
func ViewerID(c *gin.Context) string {
	if id, ok := c.Get(viewerIdKey); ok {
		return id.(string)
	}
	return c.Request.Header.Get("sub")
}
