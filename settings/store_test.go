package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))

	require.NoError(t, err)
	assert.Equal(t, true, store.Value("show-desktop", "enable", true))
}

func TestOpen_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show-desktop: [enable"), 0o644))

	_, err := Open(path)

	assert.ErrorContains(t, err, "open")
}

func TestStore_SetValuePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.SetValue("show-desktop", "enable", false))
	require.NoError(t, store.SetValue("show-desktop", "pos_show-desktop_1", 4))

	reopened, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, false, reopened.Value("show-desktop", "enable", true))
	assert.Equal(t, 4, reopened.Value("show-desktop", "pos_show-desktop_1", 1))
	assert.Equal(t, "fallback", reopened.Value("trash", "enable", "fallback"))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_SetValueKeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on Windows")
	}

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show-desktop:\n  enable: true\n"), 0o600))

	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.SetValue("show-desktop", "enable", false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show-desktop:\n  enable: true\n"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	changed, err := store.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("show-desktop:\n  enable: false\n"), 0o644))

	changed, err = store.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, false, store.Value("show-desktop", "enable", true))

	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))

	_, err = store.Reload()
	assert.Error(t, err)
	assert.Equal(t, false, store.Value("show-desktop", "enable", true), "failed reload must keep values")
}

func TestStore_ReloadOwnerWithoutKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show-desktop:\n"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.SetValue("show-desktop", "enable", true))
	assert.Equal(t, true, store.Value("show-desktop", "enable", false))
}

func TestNewMemory(t *testing.T) {
	store := NewMemory()

	require.NoError(t, store.SetValue("show-desktop", "enable", false))
	assert.Equal(t, false, store.Value("show-desktop", "enable", true))
	assert.Empty(t, store.Path())

	changed, err := store.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDefaultPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	path, err := DefaultPath()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/show-desktop/settings.yaml", path)
}
