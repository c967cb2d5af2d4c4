package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("correct horse")
	require.NoError(t, err)

	assert.True(t, IsHash(hash))
	assert.True(t, Compare(hash, "correct horse"))
	assert.False(t, Compare(hash, "correct horse "))
	assert.False(t, Compare("not-a-hash", "correct horse"))
}

func TestHash_RejectsWeakPasswords(t *testing.T) {
	_, err := Hash("short")
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Hash("          ")
	assert.ErrorIs(t, err, ErrBlank)
}

func TestIsHash(t *testing.T) {
	assert.False(t, IsHash(""))
	assert.False(t, IsHash("secret123"))
}
