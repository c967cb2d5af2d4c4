package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memento-client/pkg/logger"
	"memento-client/pkg/metrics"
	"memento-client/pkg/password"
	"memento-client/pkg/response"
)

// Realm is the Basic auth realm the stub advertises
const Realm = "memento"

// Credentials is the single account the stub server accepts
type Credentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// BasicAuth rejects requests that do not carry the configured credentials.
// On success the username is set in the Gin context. m may be nil.
func BasicAuth(creds Credentials, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, pass, ok := c.Request.BasicAuth()
		if !ok {
			reject(c, m, "missing_credentials")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(creds.Username)) == 1
		// always run bcrypt so unknown users cost the same as wrong passwords
		passOK := password.Compare(creds.PasswordHash, pass)
		if !userOK || !passOK {
			logger.FromContext(c.Request.Context()).Warn("Rejected call-list credentials",
				zap.String("username", username),
				zap.String("client_ip", c.ClientIP()))
			reject(c, m, "bad_credentials")
			return
		}

		c.Set("username", username)
		c.Next()
	}
}

func reject(c *gin.Context, m *metrics.Metrics, reason string) {
	if m != nil {
		m.RecordAuthFailure(reason)
	}
	c.Header("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	response.Unauthorized(c, "Authorization required")
}
