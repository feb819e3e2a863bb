package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demigrate/demigrate/pkg/catalog"
	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/testutil"
	"github.com/demigrate/demigrate/pkg/types"
)

const queryTimeout = 5 * time.Second

func TestFlatpakAvailable(t *testing.T) {
	runner := testutil.NewFakeRunner()
	assert.True(t, catalog.NewFlatpak(runner, queryTimeout, false).Available())

	runner.MissingTools["flatpak"] = true
	assert.False(t, catalog.NewFlatpak(runner, queryTimeout, false).Available())
}

func TestFlatpakInstalled(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Responses["flatpak list --app --columns=application"] = "org.mozilla.firefox\norg.kde.okular\n\n  \n"

	fp := catalog.NewFlatpak(runner, queryTimeout, false)
	apps, err := fp.Installed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"org.mozilla.firefox", "org.kde.okular"}, apps)
}

func TestFlatpakInstalledQueryError(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Errs["flatpak list --app --columns=application"] = errors.New(errors.ErrToolExec, "flatpak broke")

	fp := catalog.NewFlatpak(runner, queryTimeout, false)
	_, err := fp.Installed(context.Background())
	assert.Error(t, err)
}

func TestExecutePlan(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fp := catalog.NewFlatpak(runner, queryTimeout, false)

	counts := fp.ExecutePlan(context.Background(), catalog.ReconciliationPlan{
		ToRemove:       []string{"org.gnome.Calculator"},
		ToInstall:      []string{"org.kde.okular", "org.kde.gwenview"},
		AlreadyPresent: []string{"org.mozilla.firefox"},
	})

	assert.Equal(t, types.OpCounts{Migrated: 3, Skipped: 1}, counts)
	assert.Equal(t, []string{
		"flatpak uninstall --assumeyes org.gnome.Calculator",
		"flatpak install --assumeyes --noninteractive flathub org.kde.okular",
		"flatpak install --assumeyes --noninteractive flathub org.kde.gwenview",
	}, runner.CallsTo("flatpak"))
}

func TestExecutePlanFailureDoesNotBlockRest(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Errs["flatpak install --assumeyes --noninteractive flathub org.kde.okular"] =
		errors.New(errors.ErrToolExec, "no network")

	fp := catalog.NewFlatpak(runner, queryTimeout, false)
	counts := fp.ExecutePlan(context.Background(), catalog.ReconciliationPlan{
		ToInstall: []string{"org.kde.okular", "org.kde.gwenview"},
	})

	assert.Equal(t, types.OpCounts{Migrated: 1, Errors: 1}, counts)
	assert.Len(t, runner.CallsTo("flatpak"), 2, "the failing item must not stop the next one")
}

func TestExecutePlanDryRun(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fp := catalog.NewFlatpak(runner, queryTimeout, true)

	counts := fp.ExecutePlan(context.Background(), catalog.ReconciliationPlan{
		ToRemove:       []string{"org.gnome.Calculator"},
		ToInstall:      []string{"org.kde.okular"},
		AlreadyPresent: []string{"org.mozilla.firefox"},
	})

	assert.Equal(t, types.OpCounts{Migrated: 2, Skipped: 1}, counts,
		"dry-run counts match what a real run would report")
	assert.Empty(t, runner.Calls, "dry-run must not invoke flatpak")
}
