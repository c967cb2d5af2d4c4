package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders marks responses as private call data that must not be
// content-sniffed or cached by intermediaries
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("Cache-Control", "no-store")
		c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}
