package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/types"
)

// MigrateWallpaper copies the previous desktop's background image to a
// fixed destination under the home directory. It is a direct file copy,
// independent of the key/value settings, and is attempted even when the
// background category produced no key/value settings.
func (a *Applier) MigrateWallpaper(extracted []ExtractedSetting, sourceRoot, destRel string) types.OpCounts {
	imagePath := a.resolveWallpaperSource(extracted, sourceRoot)
	if imagePath == "" {
		a.logger.Debug().Msg("No wallpaper source found")
		return types.OpCounts{Skipped: 1}
	}

	if _, err := os.Stat(imagePath); err != nil {
		a.logger.Warn().Str("path", imagePath).Msg("Wallpaper image no longer exists")
		return types.OpCounts{Skipped: 1}
	}

	dest := filepath.Join(a.homeDir, destRel+filepath.Ext(imagePath))

	if a.dryRun {
		fmt.Printf("[dry-run] would copy wallpaper %s -> %s\n", imagePath, dest)
		return types.OpCounts{Migrated: 1}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		a.logger.Error().Err(err).Str("path", dest).Msg("Cannot create wallpaper destination directory")
		return types.OpCounts{Errors: 1}
	}
	if err := copyRegularFile(imagePath, dest); err != nil {
		a.logger.Error().Err(err).Str("path", imagePath).Msg("Wallpaper copy failed")
		return types.OpCounts{Errors: 1}
	}

	a.logger.Info().Str("from", imagePath).Str("to", dest).Msg("Wallpaper migrated")
	return types.OpCounts{Migrated: 1}
}

// resolveWallpaperSource finds the background image path: first from the
// extracted picture-uri keys, then from an archived Plasma wallpaper
// config. GNOME slideshow XML definitions resolve to their first static
// image file.
func (a *Applier) resolveWallpaperSource(extracted []ExtractedSetting, sourceRoot string) string {
	uri := ""
	for _, key := range []string{"picture-uri", "picture-uri-dark"} {
		for _, s := range extracted {
			if strings.HasSuffix(s.ScopeKey, "/"+key) {
				uri = strings.Trim(s.Value, "'\"")
				break
			}
		}
		if uri != "" {
			break
		}
	}

	if uri == "" {
		uri = plasmaWallpaperURI(filepath.Join(sourceRoot, ".config", "plasma-org.kde.plasma.desktop-appletsrc"))
	}
	if uri == "" {
		return ""
	}

	path := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(path) {
		return ""
	}

	if strings.EqualFold(filepath.Ext(path), ".xml") {
		resolved, err := resolveSlideshowImage(path)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("Could not resolve slideshow definition")
			return ""
		}
		return resolved
	}

	return path
}

// plasmaWallpaperURI pulls the first Image= entry out of an archived
// Plasma desktop config, if one was archived.
func plasmaWallpaperURI(appletsrcPath string) string {
	data, err := os.ReadFile(appletsrcPath)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Image=") {
			return strings.TrimPrefix(line, "Image=")
		}
	}
	return ""
}

// resolveSlideshowImage parses a GNOME background slideshow XML definition
// and returns the first static image file it references.
func resolveSlideshowImage(xmlPath string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(xmlPath); err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "failed to parse slideshow %s", xmlPath)
	}

	for _, el := range doc.FindElements("//static/file") {
		if file := strings.TrimSpace(el.Text()); file != "" {
			return file, nil
		}
	}
	for _, el := range doc.FindElements("//file") {
		if file := strings.TrimSpace(el.Text()); file != "" {
			return file, nil
		}
	}

	return "", errors.Newf(errors.ErrEmpty, "slideshow %s references no image files", xmlPath)
}

// copyRegularFile copies one regular file's contents and mode.
func copyRegularFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, info.Mode().Perm())
}
