package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStringFromFile_PrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))
	t.Setenv("MEMENTO_PASSWORD", "from-env")
	t.Setenv("MEMENTO_PASSWORD_FILE", path)

	assert.Equal(t, "s3cret", GetStringFromFile("MEMENTO_PASSWORD", ""))
}

func TestGetStringFromFile_FallsBackToEnv(t *testing.T) {
	t.Setenv("MEMENTO_PASSWORD", "from-env")
	t.Setenv("MEMENTO_PASSWORD_FILE", filepath.Join(t.TempDir(), "missing"))

	assert.Equal(t, "from-env", GetStringFromFile("MEMENTO_PASSWORD", ""))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("T_INT", "42")
	t.Setenv("T_BAD_INT", "forty")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_SECS", "15")
	t.Setenv("T_DUR", "1m30s")
	t.Setenv("T_BAD_DUR", "soon")

	assert.Equal(t, 42, GetInt("T_INT", 1))
	assert.Equal(t, 1, GetInt("T_BAD_INT", 1))
	assert.True(t, GetBool("T_BOOL", false))
	assert.False(t, GetBool("T_UNSET_BOOL", false))
	assert.Equal(t, 15*time.Second, GetDuration("T_SECS", time.Second))
	assert.Equal(t, 90*time.Second, GetDuration("T_DUR", time.Second))
	assert.Equal(t, time.Second, GetDuration("T_BAD_DUR", time.Second))
	assert.Equal(t, "fallback", GetString("T_UNSET", "fallback"))
}
