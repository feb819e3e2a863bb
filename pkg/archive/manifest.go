package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/paths"
)

// On-disk layout of a session root.
const (
	ManifestFileName  = "manifest.json"
	ConfigsDirName    = "configs"
	MetadataDirName   = "metadata"
	RestoreScriptName = "restore-configs.sh"
	RollbackScriptName = "rollback.sh"

	// ManifestVersion is bumped on incompatible manifest schema changes.
	ManifestVersion = 1
)

// Metadata file names written into metadata/.
const (
	MetaPreviousDe    = "previous-de.txt"
	MetaPreviousImage = "previous-image.txt"
	MetaTargetDe      = "target-de.txt"
	MetaBackupDate    = "backup-date.txt"
)

// Manifest describes one backup session. Written once at Finalize and
// consumed read-only by the post-switch phase and settings replay.
type Manifest struct {
	Version       int            `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	BackupDir     string         `json:"backupDir"`
	SourceImage   string         `json:"sourceImage"`
	TargetImage   string         `json:"targetImage"`
	SourceDe      string         `json:"sourceDe"`
	TargetDe      string         `json:"targetDe"`
	ArchivedPaths []ArchivedPath `json:"archivedPaths"`
	Failures      int            `json:"failures"`
}

func (s *Session) buildManifest() Manifest {
	return Manifest{
		Version:       ManifestVersion,
		Timestamp:     time.Now(),
		BackupDir:     s.Root,
		SourceImage:   s.mctx.SourceImage,
		TargetImage:   s.mctx.TargetImage,
		SourceDe:      string(s.mctx.SourceDE),
		TargetDe:      string(s.mctx.TargetDE),
		ArchivedPaths: s.archived,
		Failures:      s.failures,
	}
}

func writeManifest(root string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode manifest")
	}
	path := filepath.Join(root, ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "failed to write %s", ManifestFileName)
	}
	return nil
}

// LoadManifest reads the manifest of a previously finalized session.
func LoadManifest(root string) (Manifest, error) {
	var m Manifest

	path := filepath.Join(root, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, errors.Newf(errors.ErrSessionNotFound, "no manifest found in %s", root)
		}
		return m, errors.Wrapf(err, errors.ErrIOFailure, "failed to read %s", path)
	}

	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrapf(err, errors.ErrSessionInvalid, "malformed manifest in %s", root)
	}
	if m.Version > ManifestVersion {
		return m, errors.Newf(errors.ErrSessionInvalid,
			"manifest version %d is newer than supported version %d", m.Version, ManifestVersion)
	}

	return m, nil
}

// FindLatestSession returns the root of the most recent session under
// backupRoot, relying on the timestamp-derived directory names sorting
// lexicographically.
func FindLatestSession(backupRoot string) (string, error) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Newf(errors.ErrSessionNotFound, "no backups found under %s", backupRoot)
		}
		return "", errors.Wrapf(err, errors.ErrIOFailure, "failed to read backup root %s", backupRoot)
	}

	latest := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, paths.SessionPrefix) || name == paths.SessionPrefix {
			continue
		}
		if name > latest {
			latest = name
		}
	}

	if latest == "" {
		return "", errors.Newf(errors.ErrSessionNotFound, "no backup sessions under %s", backupRoot)
	}
	return filepath.Join(backupRoot, latest), nil
}
