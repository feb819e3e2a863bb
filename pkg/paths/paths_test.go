package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaths(t *testing.T) (*Paths, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBackupRoot, "")
	t.Setenv(EnvCacheDir, "")
	t.Setenv(EnvConfigDir, "")

	p, err := New()
	require.NoError(t, err)
	return p, home
}

func TestEnvironmentOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBackupRoot, "/custom/backups")
	t.Setenv(EnvCacheDir, "~/my-cache")
	t.Setenv(EnvConfigDir, "/custom/config")

	p, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/custom/backups", p.BackupRoot())
	assert.Equal(t, filepath.Join(home, "my-cache"), p.CacheDir(), "tilde expands against home")
	assert.Equal(t, "/custom/config", p.ConfigDir())
}

func TestDerivedPaths(t *testing.T) {
	p, _ := newTestPaths(t)

	assert.Equal(t, filepath.Join(p.ConfigDir(), ConfigFileName), p.ConfigFilePath())
	assert.Equal(t, filepath.Join(p.CacheDir(), CatalogsDirName), p.CatalogCacheDir())
	assert.Equal(t, filepath.Join(p.BackupRoot(), SessionPrefix+"20250301-120000"),
		p.SessionDir("20250301-120000"))
}

func TestRelativeToHome(t *testing.T) {
	p, home := newTestPaths(t)

	tests := []struct {
		name string
		abs  string
		want string
	}{
		{"inside home", filepath.Join(home, ".config", "kdeglobals"), ".config/kdeglobals"},
		{"home itself", home, "."},
		{"outside home", "/etc/fstab", "etc/fstab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.RelativeToHome(tt.abs))
		})
	}
}

func TestGetHomeDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := GetHomeDirectory()
	require.NoError(t, err)
	assert.Equal(t, home, got)
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/u", expandHome("~", "/home/u"))
	assert.Equal(t, "/home/u/x", expandHome("~/x", "/home/u"))
	assert.Equal(t, "/abs/x", expandHome("/abs/x", "/home/u"))
	assert.Equal(t, "rel/x", expandHome("rel/x", "/home/u"))
}
