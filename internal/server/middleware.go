package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// authRequired checks the shared secret supplied per request, either as
// the X-Auth-Token header or the token query parameter. Rejections are
// logged with the originating address. An empty configured secret denies
// everything rather than opening the API up.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Auth-Token")
		if supplied == "" {
			supplied = c.Query("token")
		}

		if s.cfg.Token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.Token)) != 1 {
			s.logger.Warn("unauthorized request",
				"remote", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
