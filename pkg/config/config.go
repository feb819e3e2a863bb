// Package config loads demigrate's user configuration: compiled defaults,
// optionally overridden by a TOML file in the demigrate config directory.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/logging"
)

// Config holds all user-tunable settings.
type Config struct {
	// Catalogs maps a desktop environment id to the URL its application
	// catalog is fetched from.
	Catalogs map[string]string `toml:"catalogs"`

	// CacheTTLHours is how long a fetched catalog stays fresh.
	CacheTTLHours int `toml:"cache_ttl_hours"`

	// FetchTimeoutSeconds bounds catalog fetches.
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`

	// ToolTimeoutSeconds bounds external tool invocations (dconf, flatpak).
	ToolTimeoutSeconds int `toml:"tool_timeout_seconds"`

	// ExtraArchivePaths are additional home-relative paths archived during
	// the pre-switch phase, on top of the built-in category paths.
	ExtraArchivePaths []string `toml:"extra_archive_paths"`

	// WallpaperDestination is the home-relative path the migrated
	// wallpaper image is copied to (extension appended from the source).
	WallpaperDestination string `toml:"wallpaper_destination"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Catalogs: map[string]string{
			"gnome": "https://raw.githubusercontent.com/ublue-os/bluefin/main/flatpaks/system-flatpaks.list",
			"kde":   "https://raw.githubusercontent.com/ublue-os/aurora/main/flatpaks/system-flatpaks.list",
		},
		CacheTTLHours:        24,
		FetchTimeoutSeconds:  30,
		ToolTimeoutSeconds:   20,
		WallpaperDestination: "Pictures/migrated-wallpaper",
	}
}

// Load returns the default configuration overridden by the TOML file at
// configPath, if one exists. A missing file is not an error; a malformed
// file is.
func Load(configPath string) (Config, error) {
	logger := logging.GetLogger("config")
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", configPath).Msg("No user config file, using defaults")
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config file %s", configPath)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", configPath)
	}

	logger.Debug().Str("path", configPath).Msg("Loaded user config")
	return cfg, nil
}
