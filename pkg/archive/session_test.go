package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/paths"
	"github.com/demigrate/demigrate/pkg/testutil"
	"github.com/demigrate/demigrate/pkg/types"
)

func testContext(home string, dryRun bool) types.MigrationContext {
	return types.MigrationContext{
		SourceDE:    types.DesktopGNOME,
		TargetDE:    types.DesktopKDE,
		SourceImage: "ghcr.io/ublue-os/bluefin:stable",
		TargetImage: "ghcr.io/ublue-os/aurora:stable",
		HomeDir:     home,
		DryRun:      dryRun,
	}
}

func beginSession(t *testing.T, home string, dryRun bool) *archive.Session {
	t.Helper()
	p, err := paths.New()
	require.NoError(t, err)

	sess, err := archive.NewStore(p).BeginSession(testContext(home, dryRun))
	require.NoError(t, err)
	return sess
}

func TestArchiveMissingSourceIsSkipped(t *testing.T) {
	home := testutil.TempHome(t)
	sess := beginSession(t, home, false)

	record, err := sess.Archive(filepath.Join(home, ".config", "nonexistent"), archive.ModeCopy, "gnome")
	require.NoError(t, err)
	assert.Equal(t, archive.DispositionSkippedMissing, record.Disposition)

	// A skipped path must not create anything under configs/.
	dest := filepath.Join(sess.Root, archive.ConfigsDirName, "gnome", ".config", "nonexistent")
	_, statErr := os.Lstat(dest)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, sess.Failures())
}

func TestArchiveCopyLeavesSourceIntact(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "gtk-3.0", "settings.ini")
	testutil.WriteFile(t, src, "gtk-font-name=Cantarell 11\n")

	sess := beginSession(t, home, false)
	record, err := sess.Archive(src, archive.ModeCopy, "gnome")
	require.NoError(t, err)
	assert.Equal(t, archive.DispositionCopied, record.Disposition)

	dest := filepath.Join(sess.Root, archive.ConfigsDirName, "gnome", ".config", "gtk-3.0", "settings.ini")
	assert.Equal(t, "gtk-font-name=Cantarell 11\n", testutil.ReadFile(t, dest))
	assert.FileExists(t, src)
}

func TestArchiveCopyPreservesSymlink(t *testing.T) {
	home := testutil.TempHome(t)
	target := filepath.Join(home, "real-kdeglobals")
	testutil.WriteFile(t, target, "[General]\n")
	link := filepath.Join(home, ".config", "kdeglobals")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link))

	sess := beginSession(t, home, false)
	_, err := sess.Archive(link, archive.ModeCopy, "kde")
	require.NoError(t, err)

	dest := filepath.Join(sess.Root, archive.ConfigsDirName, "kde", ".config", "kdeglobals")
	info, err := os.Lstat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSymlink, info.Mode()&os.ModeSymlink, "archived copy should still be a symlink")

	got, err := os.Readlink(dest)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestArchiveMoveRemovesSource(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "kwinrc")
	testutil.WriteFile(t, src, "[Windows]\n")

	sess := beginSession(t, home, false)
	record, err := sess.Archive(src, archive.ModeMove, "kde-reset")
	require.NoError(t, err)
	assert.Equal(t, archive.DispositionMoved, record.Disposition)

	_, statErr := os.Lstat(src)
	assert.True(t, os.IsNotExist(statErr), "moved source should be gone")

	dest := filepath.Join(sess.Root, archive.ConfigsDirName, "kde-reset", ".config", "kwinrc")
	assert.Equal(t, "[Windows]\n", testutil.ReadFile(t, dest))
}

func TestArchiveDirectoryCopiesTree(t *testing.T) {
	home := testutil.TempHome(t)
	dir := filepath.Join(home, ".config", "gtk-4.0")
	testutil.WriteFile(t, filepath.Join(dir, "settings.ini"), "gtk-font-name=Inter 11\n")
	testutil.WriteFile(t, filepath.Join(dir, "gtk.css"), "/* custom */\n")

	sess := beginSession(t, home, false)
	_, err := sess.Archive(dir, archive.ModeCopy, "gnome")
	require.NoError(t, err)

	destDir := filepath.Join(sess.Root, archive.ConfigsDirName, "gnome", ".config", "gtk-4.0")
	assert.Equal(t, "gtk-font-name=Inter 11\n", testutil.ReadFile(t, filepath.Join(destDir, "settings.ini")))
	assert.Equal(t, "/* custom */\n", testutil.ReadFile(t, filepath.Join(destDir, "gtk.css")))
}

func TestArchiveSamePathOnlyOnce(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "monitors.xml")
	testutil.WriteFile(t, src, "<monitors/>\n")

	sess := beginSession(t, home, false)
	first, err := sess.Archive(src, archive.ModeCopy, "gnome")
	require.NoError(t, err)
	second, err := sess.Archive(src, archive.ModeCopy, "gnome")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeat archive returns the prior record")
	assert.Len(t, sess.ArchivedPaths(), 1)
}

func TestFinalizeWritesManifestAndMetadata(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "kdeglobals")
	testutil.WriteFile(t, src, "[General]\nfont=Noto Sans,10\n")

	sess := beginSession(t, home, false)
	_, err := sess.Archive(src, archive.ModeCopy, "kde")
	require.NoError(t, err)
	_, err = sess.Archive(filepath.Join(home, ".config", "missing"), archive.ModeCopy, "kde")
	require.NoError(t, err)

	artifacts, err := sess.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0, artifacts.Failures)

	manifest, err := archive.LoadManifest(sess.Root)
	require.NoError(t, err)
	assert.Equal(t, archive.ManifestVersion, manifest.Version)
	assert.Equal(t, sess.Root, manifest.BackupDir)
	assert.Equal(t, "ghcr.io/ublue-os/bluefin:stable", manifest.SourceImage)
	assert.Equal(t, "ghcr.io/ublue-os/aurora:stable", manifest.TargetImage)
	assert.Equal(t, "gnome", manifest.SourceDe)
	assert.Equal(t, "kde", manifest.TargetDe)
	assert.Len(t, manifest.ArchivedPaths, 2)
	assert.Equal(t, 0, manifest.Failures)

	meta := filepath.Join(sess.Root, archive.MetadataDirName)
	assert.Equal(t, "gnome\n", testutil.ReadFile(t, filepath.Join(meta, archive.MetaPreviousDe)))
	assert.Equal(t, "kde\n", testutil.ReadFile(t, filepath.Join(meta, archive.MetaTargetDe)))
	assert.Equal(t, "ghcr.io/ublue-os/bluefin:stable\n", testutil.ReadFile(t, filepath.Join(meta, archive.MetaPreviousImage)))
	assert.Equal(t, sess.ID+"\n", testutil.ReadFile(t, filepath.Join(meta, archive.MetaBackupDate)))
}

func TestRestoreScriptContents(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "it's quoted")
	testutil.WriteFile(t, src, "x\n")

	sess := beginSession(t, home, false)
	_, err := sess.Archive(src, archive.ModeCopy, "gnome")
	require.NoError(t, err)
	_, err = sess.Archive(filepath.Join(home, ".config", "absent"), archive.ModeCopy, "gnome")
	require.NoError(t, err)

	artifacts, err := sess.Finalize()
	require.NoError(t, err)

	script := testutil.ReadFile(t, artifacts.RestoreScriptPath)
	assert.Contains(t, script, "#!/usr/bin/env bash")
	// Never-clobber guard: existing destinations are skipped, not overwritten.
	assert.Contains(t, script, `if [ -e "$dest" ] || [ -L "$dest" ]; then`)
	// Paths with shell metacharacters are quoted.
	assert.Contains(t, script, `'\''`)
	// Skipped-missing paths never appear in the script.
	assert.NotContains(t, script, "absent")

	info, err := os.Stat(artifacts.RestoreScriptPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	rollback := testutil.ReadFile(t, artifacts.RollbackScriptPath)
	assert.Contains(t, rollback, "rpm-ostree rebase ghcr.io/ublue-os/bluefin:stable")
	assert.Contains(t, rollback, archive.RestoreScriptName)
}

func TestDryRunSessionTouchesNothing(t *testing.T) {
	home := testutil.TempHome(t)
	src := filepath.Join(home, ".config", "kdeglobals")
	testutil.WriteFile(t, src, "[General]\n")

	sess := beginSession(t, home, true)

	record, err := sess.Archive(src, archive.ModeMove, "kde")
	require.NoError(t, err)
	assert.Equal(t, archive.DispositionMoved, record.Disposition, "preview reports the real disposition")
	assert.FileExists(t, src, "dry-run move must not touch the source")

	_, err = sess.Finalize()
	require.NoError(t, err)

	_, statErr := os.Stat(sess.Root)
	assert.True(t, os.IsNotExist(statErr), "dry-run must not create the session directory")
}

func TestDryRunRecordsMatchRealRun(t *testing.T) {
	// Two identical homes: one real run, one dry run. The archived record
	// lists must agree path for path.
	build := func(t *testing.T, dryRun bool) []archive.ArchivedPath {
		home := testutil.TempHome(t)
		testutil.WriteFile(t, filepath.Join(home, ".config", "kdeglobals"), "[General]\n")
		testutil.WriteFile(t, filepath.Join(home, ".config", "gtk-3.0", "settings.ini"), "gtk-font-name=Inter 11\n")

		sess := beginSession(t, home, dryRun)
		for _, rel := range []string{".config/kdeglobals", ".config/gtk-3.0/settings.ini", ".config/missing"} {
			_, err := sess.Archive(filepath.Join(home, rel), archive.ModeCopy, "cat")
			require.NoError(t, err)
		}

		records := sess.ArchivedPaths()
		stripped := make([]archive.ArchivedPath, len(records))
		for i, r := range records {
			r.SourcePath = r.RelativePath // home dirs differ between the two runs
			stripped[i] = r
		}
		return stripped
	}

	assert.Equal(t, build(t, false), build(t, true))
}
