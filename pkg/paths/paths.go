// Package paths provides centralized path handling for demigrate.
// It implements XDG Base Directory compliance and a consistent API for
// all path resolution in the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/demigrate/demigrate/pkg/errors"
)

// Environment variable names
const (
	// EnvBackupRoot overrides the directory backup sessions are created under
	EnvBackupRoot = "DEMIGRATE_BACKUP_ROOT"

	// EnvCacheDir overrides the XDG cache directory for demigrate
	EnvCacheDir = "DEMIGRATE_CACHE_DIR"

	// EnvConfigDir overrides the XDG config directory for demigrate
	EnvConfigDir = "DEMIGRATE_CONFIG_DIR"
)

// Directory and file names owned by demigrate. These define the on-disk
// layout of a backup session and are not user-configurable.
const (
	// AppDirName is the directory name for demigrate-specific files
	AppDirName = "demigrate"

	// BackupsDirName is the subdirectory backup sessions live under
	BackupsDirName = "backups"

	// CatalogsDirName is the subdirectory for cached application catalogs
	CatalogsDirName = "catalogs"

	// ConfigFileName is the name of the user configuration file
	ConfigFileName = "config.toml"

	// SessionPrefix prefixes every backup session directory name
	SessionPrefix = "backup-"
)

// Paths provides centralized path management for demigrate
type Paths struct {
	homeDir    string
	backupRoot string
	configDir  string
	cacheDir   string
}

// New creates a Paths instance rooted at the current user's home directory,
// honoring the demigrate environment overrides.
func New() (*Paths, error) {
	home, err := GetHomeDirectory()
	if err != nil {
		return nil, err
	}

	p := &Paths{homeDir: home}

	if root := os.Getenv(EnvBackupRoot); root != "" {
		p.backupRoot = expandHome(root, home)
	} else {
		p.backupRoot = filepath.Join(xdg.DataHome, AppDirName, BackupsDirName)
	}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = expandHome(dir, home)
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if dir := os.Getenv(EnvCacheDir); dir != "" {
		p.cacheDir = expandHome(dir, home)
	} else {
		p.cacheDir = filepath.Join(xdg.CacheHome, AppDirName)
	}

	return p, nil
}

// HomeDir returns the user's home directory.
func (p *Paths) HomeDir() string { return p.homeDir }

// BackupRoot returns the directory backup sessions are created under.
func (p *Paths) BackupRoot() string { return p.backupRoot }

// ConfigDir returns the demigrate configuration directory.
func (p *Paths) ConfigDir() string { return p.configDir }

// ConfigFilePath returns the path of the user configuration file.
func (p *Paths) ConfigFilePath() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// CacheDir returns the demigrate cache directory.
func (p *Paths) CacheDir() string { return p.cacheDir }

// CatalogCacheDir returns the directory cached application catalogs live in.
func (p *Paths) CatalogCacheDir() string {
	return filepath.Join(p.cacheDir, CatalogsDirName)
}

// SessionDir returns the directory for a backup session with the given id.
func (p *Paths) SessionDir(id string) string {
	return filepath.Join(p.backupRoot, SessionPrefix+id)
}

// RelativeToHome converts an absolute path inside the home directory to a
// home-relative path. Paths outside the home directory are returned as-is
// with the leading slash trimmed, so they still produce a valid archive
// destination.
func (p *Paths) RelativeToHome(abs string) string {
	if rel, err := filepath.Rel(p.homeDir, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return strings.TrimPrefix(abs, "/")
}

// GetHomeDirectory returns the user's home directory. It tries
// os.UserHomeDir first, then the HOME environment variable, and returns an
// error rather than using a dangerous default.
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil && homeDir != "" {
		return homeDir, nil
	}

	homeDir = os.Getenv("HOME")
	if homeDir != "" {
		return homeDir, nil
	}

	return "", errors.New(errors.ErrFileAccess,
		"unable to determine home directory: neither os.UserHomeDir() nor HOME are available")
}

// expandHome expands a leading ~ against the given home directory.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
