package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"memento-client/pkg/logger"
)

// Error codes the stub server reports in JSON error bodies
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInvalidUser   = "INVALID_USER"
	CodeInternalError = "INTERNAL_ERROR"
)

// Response is the JSON envelope of every non-document response
type Response struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    Meta         `json:"meta"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains response metadata
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error aborts the request with an error envelope
func Error(c *gin.Context, statusCode int, errorCode, errorMessage string) {
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: errorMessage,
		},
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: requestID(c),
		},
	})
}

// InvalidUser sends 400 for identities that cannot name a call list
func InvalidUser(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeInvalidUser, message)
}

// Unauthorized sends 401
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InternalError sends 500
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternalError, message)
}

func requestID(c *gin.Context) string {
	if id, ok := logger.RequestIDFromContext(c.Request.Context()); ok {
		return id
	}
	return c.GetString("request_id")
}
