package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/types"
)

// Restore writes every archived path of a finalized session back to its
// original location. Semantics match the generated restore script exactly:
// a destination that already exists is never clobbered, so running Restore
// twice performs zero writes on the second run.
func Restore(root string, dryRun bool) (types.OpCounts, error) {
	logger := logging.GetLogger("archive.restore")
	var counts types.OpCounts

	manifest, err := LoadManifest(root)
	if err != nil {
		return counts, err
	}

	for _, ap := range manifest.ArchivedPaths {
		if ap.Disposition == DispositionSkippedMissing {
			counts.Skipped++
			continue
		}

		src := filepath.Join(root, ConfigsDirName, ap.Category, ap.RelativePath)
		if _, err := os.Lstat(src); os.IsNotExist(err) {
			logger.Warn().Str("path", src).Msg("Archived copy missing from backup")
			counts.Skipped++
			continue
		}

		if _, err := os.Lstat(ap.SourcePath); err == nil {
			logger.Debug().Str("path", ap.SourcePath).Msg("Destination already present, skipping")
			fmt.Printf("already present, skipping: %s\n", ap.SourcePath)
			counts.Skipped++
			continue
		}

		if dryRun {
			fmt.Printf("[dry-run] would restore %s\n", ap.SourcePath)
			counts.Migrated++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(ap.SourcePath), 0755); err != nil {
			logger.Error().Err(err).Str("path", ap.SourcePath).Msg("Failed to create parent directory")
			counts.Errors++
			continue
		}
		if err := copyPath(src, ap.SourcePath); err != nil {
			logger.Error().Err(err).Str("path", ap.SourcePath).Msg("Restore failed")
			counts.Errors++
			continue
		}

		logger.Info().Str("path", ap.SourcePath).Msg("Path restored")
		counts.Migrated++
	}

	return counts, nil
}

// ResolveSessionRoot resolves the session directory to operate on: an
// explicit override wins, otherwise the most recent session under
// backupRoot. A missing session is a session-level precondition failure.
func ResolveSessionRoot(backupRoot, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", errors.Newf(errors.ErrSessionNotFound, "backup directory %s not found", override)
		}
		return override, nil
	}
	return FindLatestSession(backupRoot)
}
