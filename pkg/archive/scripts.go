package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/demigrate/demigrate/pkg/errors"
)

// Artifacts lists the recovery files a finalized session carries.
type Artifacts struct {
	ManifestPath       string
	RestoreScriptPath  string
	RollbackScriptPath string
	EntryPointPath     string
	Failures           int
}

// Finalize writes the manifest, the metadata files derived from the
// migration context, the recovery scripts, and a copy of the running
// executable for the post-switch phase. The session is read-only afterwards.
func (s *Session) Finalize() (Artifacts, error) {
	artifacts := Artifacts{
		ManifestPath:       filepath.Join(s.Root, ManifestFileName),
		RestoreScriptPath:  filepath.Join(s.Root, RestoreScriptName),
		RollbackScriptPath: filepath.Join(s.Root, RollbackScriptName),
		Failures:           s.failures,
	}

	if s.mctx.DryRun {
		fmt.Printf("[dry-run] would write %s, %s and %s\n",
			ManifestFileName, RestoreScriptName, RollbackScriptName)
		return artifacts, nil
	}

	if err := writeManifest(s.Root, s.buildManifest()); err != nil {
		return artifacts, err
	}

	meta := map[string]string{
		MetaPreviousDe:    string(s.mctx.SourceDE),
		MetaPreviousImage: s.mctx.SourceImage,
		MetaTargetDe:      string(s.mctx.TargetDE),
		MetaBackupDate:    s.ID,
	}
	for name, value := range meta {
		if err := s.WriteMetadata(name, value); err != nil {
			return artifacts, err
		}
	}

	if err := writeScript(artifacts.RestoreScriptPath, s.renderRestoreScript()); err != nil {
		return artifacts, err
	}
	if err := writeScript(artifacts.RollbackScriptPath, s.renderRollbackScript()); err != nil {
		return artifacts, err
	}

	if exe, err := os.Executable(); err == nil {
		dest := filepath.Join(s.Root, filepath.Base(exe))
		if err := copyPath(exe, dest); err == nil {
			artifacts.EntryPointPath = dest
		} else {
			s.logger.Warn().Err(err).Msg("Could not copy executable into backup session")
		}
	}

	s.logger.Info().Str("root", s.Root).Int("failures", s.failures).Msg("Backup session finalized")
	return artifacts, nil
}

func writeScript(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "failed to write %s", filepath.Base(path))
	}
	return nil
}

// renderRestoreScript generates a self-contained shell script that walks the
// archived paths and writes each back to its original location only when the
// destination does not already exist. Running it twice is safe: the second
// run skips every path as already present.
func (s *Session) renderRestoreScript() string {
	var b strings.Builder

	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("# Restores configuration files archived by demigrate.\n")
	b.WriteString("# Existing destinations are never overwritten; rerunning is safe.\n")
	b.WriteString("set -u\n\n")
	b.WriteString(`BACKUP_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"` + "\n")
	b.WriteString("restored=0\nskipped=0\nerrored=0\n\n")
	b.WriteString("restore_path() {\n")
	b.WriteString("  local src=\"$BACKUP_DIR/$1\"\n")
	b.WriteString("  local dest=\"$2\"\n")
	b.WriteString("  if [ ! -e \"$src\" ] && [ ! -L \"$src\" ]; then\n")
	b.WriteString("    echo \"missing in backup: $1\"\n")
	b.WriteString("    skipped=$((skipped + 1))\n")
	b.WriteString("    return\n")
	b.WriteString("  fi\n")
	b.WriteString("  if [ -e \"$dest\" ] || [ -L \"$dest\" ]; then\n")
	b.WriteString("    echo \"already present, skipping: $dest\"\n")
	b.WriteString("    skipped=$((skipped + 1))\n")
	b.WriteString("    return\n")
	b.WriteString("  fi\n")
	b.WriteString("  mkdir -p \"$(dirname \"$dest\")\"\n")
	b.WriteString("  if cp -a \"$src\" \"$dest\"; then\n")
	b.WriteString("    echo \"restored: $dest\"\n")
	b.WriteString("    restored=$((restored + 1))\n")
	b.WriteString("  else\n")
	b.WriteString("    echo \"failed: $dest\" >&2\n")
	b.WriteString("    errored=$((errored + 1))\n")
	b.WriteString("  fi\n")
	b.WriteString("}\n\n")

	for _, ap := range s.archived {
		if ap.Disposition == DispositionSkippedMissing {
			continue
		}
		rel := filepath.Join(ConfigsDirName, ap.Category, ap.RelativePath)
		b.WriteString(fmt.Sprintf("restore_path %s %s\n", shellQuote(rel), shellQuote(ap.SourcePath)))
	}

	b.WriteString("\necho \"$restored restored, $skipped skipped, $errored errored\"\n")
	b.WriteString("exit 0\n")
	return b.String()
}

// renderRollbackScript generates an advisory rollback script: it prints the
// inverse image-switch command and points at the restore script. It does not
// perform the rebase itself.
func (s *Session) renderRollbackScript() string {
	var b strings.Builder

	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("# Advisory rollback for a demigrate migration.\n")
	b.WriteString("set -u\n\n")
	b.WriteString(`BACKUP_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"` + "\n\n")
	b.WriteString(fmt.Sprintf("echo \"To return to your previous %s image, run:\"\n", s.mctx.SourceDE.Label()))
	b.WriteString(fmt.Sprintf("echo \"  rpm-ostree rebase %s\"\n", s.mctx.SourceImage))
	b.WriteString("echo \"\"\n")
	b.WriteString("echo \"After rebooting into the previous image, restore your configuration with:\"\n")
	b.WriteString(fmt.Sprintf("echo \"  $BACKUP_DIR/%s\"\n", RestoreScriptName))
	b.WriteString("exit 0\n")
	return b.String()
}

// shellQuote single-quotes a string for safe interpolation into the
// generated scripts.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
