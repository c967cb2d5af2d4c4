package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memento-client/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		send       func(*gin.Context)
		wantStatus int
		wantCode   string
	}{
		{"invalid user", func(c *gin.Context) { InvalidUser(c, "bad") }, http.StatusBadRequest, CodeInvalidUser},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "bad") }, http.StatusUnauthorized, CodeUnauthorized},
		{"internal", func(c *gin.Context) { InternalError(c, "bad") }, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request = req.WithContext(logger.WithRequestID(req.Context(), "req-1"))

			tt.send(c)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.wantStatus, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, "bad", body.Error.Message)
			assert.Equal(t, "req-1", body.Meta.RequestID)
			assert.False(t, body.Meta.Timestamp.IsZero())
		})
	}
}
