package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("fetch: %w", EncodingMismatchError("gzip", "identity"))

	assert.Equal(t, ErrCodeEncodingMismatch, CodeOf(err))
	assert.True(t, Is(err, ErrCodeEncodingMismatch))
	assert.False(t, Is(err, ErrCodeContentTypeMismatch))
	assert.True(t, IsAppError(err))
}

func TestCodeOf_PlainError(t *testing.T) {
	err := stderrors.New("boom")

	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.False(t, IsAppError(err))
	assert.False(t, Is(nil, ErrCodeInternal))
}

func TestEncodingMismatchError_ReportsActualValue(t *testing.T) {
	err := EncodingMismatchError("gzip", "identity")

	assert.Contains(t, err.Error(), `"gzip"`)
	assert.Contains(t, err.Error(), `"identity"`)
	assert.Equal(t, map[string]string{"expected": "gzip", "actual": "identity"}, err.Details)
}

func TestSchemaValidationError_CarriesAllDiagnostics(t *testing.T) {
	diags := []string{"line 3: element \"foo\" not allowed", "line 7: missing element \"to\""}
	err := SchemaValidationError(diags)

	assert.Equal(t, diags, Diagnostics(err))
	for _, d := range diags {
		assert.Contains(t, err.Error(), d)
	}
}

func TestUnexpectedStatusError(t *testing.T) {
	err := UnexpectedStatusError(401, "Unauthorized")

	assert.Equal(t, ErrCodeTransport, err.Code)
	assert.Equal(t, 401, err.StatusCode)
	assert.Contains(t, err.Error(), "401")
}

func TestWrap_Unwraps(t *testing.T) {
	cause := stderrors.New("bad digit")
	err := TimestampParseError("start-time", "2020-13-01", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "start-time")
	assert.Nil(t, Diagnostics(err))
}
