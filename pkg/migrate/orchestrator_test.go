package migrate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/config"
	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/migrate"
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

func newOrchestrator(t *testing.T, mctx types.MigrationContext, cfg config.Config, runner *testutil.FakeRunner) *migrate.Orchestrator {
	t.Helper()
	p, err := paths.New()
	require.NoError(t, err)
	return migrate.New(mctx, cfg, p, runner)
}

// seedGnomeHome writes a partial GNOME home plus stale KDE leftovers.
func seedGnomeHome(t *testing.T, home string) {
	testutil.WriteFile(t, filepath.Join(home, ".config", "dconf", "user"), "GVDB\x00binary")
	testutil.WriteFile(t, filepath.Join(home, ".config", "gtk-3.0", "settings.ini"), "gtk-font-name=Inter 11\n")
	testutil.WriteFile(t, filepath.Join(home, ".config", "monitors.xml"), "<monitors/>\n")
	testutil.WriteFile(t, filepath.Join(home, ".config", "kwinrc"), "[Windows]\nstale=true\n")
	testutil.WriteFile(t, filepath.Join(home, ".fonts.conf"), "<fontconfig/>\n")
}

func TestPreSwitch(t *testing.T) {
	home := testutil.TempHome(t)
	seedGnomeHome(t, home)

	cfg := config.Default()
	cfg.ExtraArchivePaths = []string{".fonts.conf"}

	orch := newOrchestrator(t, testContext(home, false), cfg, testutil.NewFakeRunner())
	result, err := orch.PreSwitch(context.Background())
	require.NoError(t, err)

	// Present: dconf/user, gtk-3.0, monitors.xml, stale kwinrc, .fonts.conf.
	// Missing: gtk-4.0, backgrounds, plasma appletsrc.
	assert.Equal(t, types.OpCounts{Migrated: 5, Skipped: 3}, result.Counts)

	// Stale target-DE config is moved aside, not just copied.
	_, statErr := os.Lstat(filepath.Join(home, ".config", "kwinrc"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, "[Windows]\nstale=true\n",
		testutil.ReadFile(t, filepath.Join(result.SessionRoot, archive.ConfigsDirName, "kde", ".config", "kwinrc")))

	// Source-DE config is copied and stays in place.
	assert.FileExists(t, filepath.Join(home, ".config", "monitors.xml"))
	assert.FileExists(t, filepath.Join(result.SessionRoot, archive.ConfigsDirName, "extra", ".fonts.conf"))

	manifest, err := archive.LoadManifest(result.SessionRoot)
	require.NoError(t, err)
	assert.Len(t, manifest.ArchivedPaths, 8)
	assert.Equal(t, "gnome", manifest.SourceDe)

	assert.FileExists(t, result.Artifacts.RestoreScriptPath)
	assert.FileExists(t, result.Artifacts.RollbackScriptPath)
}

func TestPreSwitchDryRun(t *testing.T) {
	home := testutil.TempHome(t)
	seedGnomeHome(t, home)

	orch := newOrchestrator(t, testContext(home, true), config.Default(), testutil.NewFakeRunner())
	result, err := orch.PreSwitch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.OpCounts{Migrated: 4, Skipped: 3}, result.Counts,
		"dry-run counts the same decisions as a real run")

	_, statErr := os.Stat(result.SessionRoot)
	assert.True(t, os.IsNotExist(statErr), "dry-run must not create the session")
	assert.FileExists(t, filepath.Join(home, ".config", "kwinrc"), "dry-run must not move stale config")
}

func TestPreSwitchCancelled(t *testing.T) {
	home := testutil.TempHome(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newOrchestrator(t, testContext(home, false), config.Default(), testutil.NewFakeRunner())
	_, err := orch.PreSwitch(ctx)
	assert.Error(t, err)
}

func catalogServer(t *testing.T, apps ...string) *httptest.Server {
	t.Helper()
	body := ""
	for _, app := range apps {
		body += "flatpak \"" + app + "\"\n"
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testManifest() archive.Manifest {
	return archive.Manifest{
		Version:     archive.ManifestVersion,
		SourceDe:    "gnome",
		TargetDe:    "kde",
		SourceImage: "ghcr.io/ublue-os/bluefin:stable",
		TargetImage: "ghcr.io/ublue-os/aurora:stable",
	}
}

func TestReconcilePlan(t *testing.T) {
	home := testutil.TempHome(t)

	gnomeSrv := catalogServer(t, "org.gnome.Calculator", "org.mozilla.firefox")
	kdeSrv := catalogServer(t, "org.kde.okular", "org.mozilla.firefox")

	cfg := config.Default()
	cfg.Catalogs = map[string]string{"gnome": gnomeSrv.URL, "kde": kdeSrv.URL}

	runner := testutil.NewFakeRunner()
	runner.Responses["flatpak list --app --columns=application"] = "org.gnome.Calculator\norg.mozilla.firefox\n"

	orch := newOrchestrator(t, testContext(home, false), cfg, runner)
	input, err := orch.ReconcilePlan(context.Background(), testManifest())
	require.NoError(t, err)

	assert.Equal(t, types.DesktopGNOME, input.PreviousDE)
	assert.Equal(t, types.DesktopKDE, input.TargetDE)
	assert.False(t, input.Stale)
	assert.Equal(t, []string{"org.gnome.Calculator"}, input.Plan.ToRemove)
	assert.Equal(t, []string{"org.kde.okular"}, input.Plan.ToInstall)
	assert.Equal(t, []string{"org.mozilla.firefox"}, input.Plan.AlreadyPresent)
}

func TestReconcilePlanRequiresFlatpak(t *testing.T) {
	home := testutil.TempHome(t)

	runner := testutil.NewFakeRunner()
	runner.MissingTools["flatpak"] = true

	orch := newOrchestrator(t, testContext(home, false), config.Default(), runner)
	_, err := orch.ReconcilePlan(context.Background(), testManifest())
	assert.True(t, errors.IsErrorCode(err, errors.ErrToolUnavailable))
}

func TestReconcilePlanRejectsUnknownDesktops(t *testing.T) {
	home := testutil.TempHome(t)

	manifest := testManifest()
	manifest.SourceDe = "xfce"

	orch := newOrchestrator(t, testContext(home, false), config.Default(), testutil.NewFakeRunner())
	_, err := orch.ReconcilePlan(context.Background(), manifest)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSessionInvalid))
}

func TestReconcilePlanFailsClosedOnFetchFailure(t *testing.T) {
	home := testutil.TempHome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Catalogs = map[string]string{"gnome": srv.URL, "kde": srv.URL}

	orch := newOrchestrator(t, testContext(home, false), cfg, testutil.NewFakeRunner())
	_, err := orch.ReconcilePlan(context.Background(), testManifest())
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailure))
}

func TestReplaySettings(t *testing.T) {
	home := testutil.TempHome(t)

	wallpaper := filepath.Join(home, "backgrounds", "forest.png")
	testutil.WriteFile(t, wallpaper, "png-bytes")

	sessionRoot := t.TempDir()
	gnomeRoot := filepath.Join(sessionRoot, archive.ConfigsDirName, "gnome")
	testutil.WriteFile(t, filepath.Join(gnomeRoot, ".config", "dconf", "user"), "GVDB\x00\x01\x02")
	testutil.WriteFile(t, filepath.Join(gnomeRoot, ".config", "gtk-3.0", "settings.ini"),
		"[Settings]\ngtk-font-name=Inter 11\n")

	runner := testutil.NewFakeRunner()
	runner.Responses["dconf dump /"] = `[org/gnome/desktop/interface]
font-name='Inter 11'

[org/gnome/desktop/background]
picture-uri='file://` + wallpaper + `'
`

	orch := newOrchestrator(t, testContext(home, false), config.Default(), runner)
	counts, err := orch.ReplaySettings(context.Background(), sessionRoot, testManifest())
	require.NoError(t, err)

	// fonts + background extract one key each, color-scheme is empty
	// (skipped), gtk-font merges one key, and the wallpaper copies.
	assert.Equal(t, types.OpCounts{Migrated: 4, Skipped: 1}, counts)

	writes := runner.CallsTo("dconf write")
	assert.Len(t, writes, 2)
	assert.Contains(t, writes, "dconf write /org/gnome/desktop/interface/font-name 'Inter 11'")

	assert.Equal(t, "gtk-font-name=Inter 11\n",
		testutil.ReadFile(t, filepath.Join(home, ".config", "gtk-3.0", "settings.ini")))
	assert.Equal(t, "png-bytes",
		testutil.ReadFile(t, filepath.Join(home, "Pictures", "migrated-wallpaper.png")))
}

func TestReplaySettingsMissingSources(t *testing.T) {
	home := testutil.TempHome(t)

	orch := newOrchestrator(t, testContext(home, false), config.Default(), testutil.NewFakeRunner())
	counts, err := orch.ReplaySettings(context.Background(), t.TempDir(), testManifest())
	require.NoError(t, err)

	// Every GNOME category is absent from the empty session.
	assert.Equal(t, types.OpCounts{Skipped: 5}, counts)
}

func TestReplaySettingsRejectsUnknownDesktop(t *testing.T) {
	home := testutil.TempHome(t)

	manifest := testManifest()
	manifest.SourceDe = "cinnamon"

	orch := newOrchestrator(t, testContext(home, false), config.Default(), testutil.NewFakeRunner())
	_, err := orch.ReplaySettings(context.Background(), t.TempDir(), manifest)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSessionInvalid))
}
