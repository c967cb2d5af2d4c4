package calllist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "memento-client/pkg/errors"
)

const sampleBody = "<call-list><calls/></call-list>"

func TestEncodeDecode(t *testing.T) {
	for _, encoding := range []string{"gzip", "deflate", "identity"} {
		t.Run(encoding, func(t *testing.T) {
			encoded, err := Encode(encoding, []byte(sampleBody))
			require.NoError(t, err)
			if encoding != "identity" {
				assert.NotEqual(t, sampleBody, string(encoded))
			}

			decoded, err := Decode(encoding, encoded)
			require.NoError(t, err)
			assert.Equal(t, sampleBody, string(decoded))
		})
	}
}

func TestDecode_CorruptBody(t *testing.T) {
	for _, encoding := range []string{"gzip", "deflate"} {
		t.Run(encoding, func(t *testing.T) {
			_, err := Decode(encoding, []byte(sampleBody))
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeEncodingMismatch))
		})
	}
}

func TestDecode_TruncatedBody(t *testing.T) {
	encoded, err := Encode("gzip", []byte(sampleBody))
	require.NoError(t, err)

	_, err = Decode("gzip", encoded[:len(encoded)-6])
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeEncodingMismatch))
}

func TestDecode_UnsupportedEncoding(t *testing.T) {
	_, err := Decode("br", []byte(sampleBody))
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeEncodingMismatch))

	_, err = Encode("br", []byte(sampleBody))
	assert.Error(t, err)
}
