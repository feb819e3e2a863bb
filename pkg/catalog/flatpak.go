package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/types"
)

// installTimeout bounds one flatpak install or uninstall. Installs pull
// from the network, so this is much longer than the query timeout.
const installTimeout = 15 * time.Minute

// Flatpak is the local install-state query and plan-execution collaborator.
type Flatpak struct {
	runner       executil.Runner
	queryTimeout time.Duration
	dryRun       bool
	logger       zerolog.Logger
}

// NewFlatpak returns a Flatpak wrapper using the given runner.
func NewFlatpak(runner executil.Runner, queryTimeout time.Duration, dryRun bool) *Flatpak {
	return &Flatpak{
		runner:       runner,
		queryTimeout: queryTimeout,
		dryRun:       dryRun,
		logger:       logging.GetLogger("catalog.flatpak"),
	}
}

// Available reports whether the flatpak tool is installed.
func (f *Flatpak) Available() bool {
	_, err := f.runner.LookPath("flatpak")
	return err == nil
}

// Installed returns the locally installed application ids.
func (f *Flatpak) Installed(ctx context.Context) ([]string, error) {
	runCtx, cancel := context.WithTimeout(ctx, f.queryTimeout)
	defer cancel()

	out, err := f.runner.Run(runCtx, "flatpak", "list", "--app", "--columns=application")
	if err != nil {
		return nil, err
	}

	var apps []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			apps = append(apps, line)
		}
	}
	return apps, nil
}

// ExecutePlan applies a reconciliation plan transactionally per item: each
// install and remove is attempted independently, and one failure never
// blocks the remaining items.
func (f *Flatpak) ExecutePlan(ctx context.Context, plan ReconciliationPlan) types.OpCounts {
	var counts types.OpCounts
	counts.Skipped += len(plan.AlreadyPresent)

	for _, app := range plan.ToRemove {
		if f.dryRun {
			fmt.Printf("[dry-run] would uninstall %s\n", app)
			counts.Migrated++
			continue
		}
		if err := f.uninstall(ctx, app); err != nil {
			f.logger.Error().Err(err).Str("app", app).Msg("Uninstall failed, continuing")
			counts.Errors++
			continue
		}
		counts.Migrated++
	}

	for _, app := range plan.ToInstall {
		if f.dryRun {
			fmt.Printf("[dry-run] would install %s\n", app)
			counts.Migrated++
			continue
		}
		if err := f.install(ctx, app); err != nil {
			f.logger.Error().Err(err).Str("app", app).Msg("Install failed, continuing")
			counts.Errors++
			continue
		}
		counts.Migrated++
	}

	return counts
}

func (f *Flatpak) install(ctx context.Context, app string) error {
	runCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	f.logger.Info().Str("app", app).Msg("Installing application")
	_, err := f.runner.Run(runCtx, "flatpak", "install", "--assumeyes", "--noninteractive", "flathub", app)
	return err
}

func (f *Flatpak) uninstall(ctx context.Context, app string) error {
	runCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	f.logger.Info().Str("app", app).Msg("Removing application")
	_, err := f.runner.Run(runCtx, "flatpak", "uninstall", "--assumeyes", app)
	return err
}
