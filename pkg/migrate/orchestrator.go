// Package migrate sequences the migration phases around the external
// image-switch boundary: pre-switch backup, post-switch application
// reconciliation, and the opt-in settings replay.
package migrate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/catalog"
	"github.com/demigrate/demigrate/pkg/config"
	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/paths"
	"github.com/demigrate/demigrate/pkg/settings"
	"github.com/demigrate/demigrate/pkg/types"
)

// Orchestrator wires the archive store, settings engine and catalog engine
// together for one migration attempt. Execution is single-threaded and
// sequential; dry-run propagates from the context into every component.
type Orchestrator struct {
	mctx   types.MigrationContext
	cfg    config.Config
	paths  *paths.Paths
	runner executil.Runner
	logger zerolog.Logger
}

// New returns an Orchestrator for the given migration context.
func New(mctx types.MigrationContext, cfg config.Config, p *paths.Paths, runner executil.Runner) *Orchestrator {
	return &Orchestrator{
		mctx:   mctx,
		cfg:    cfg,
		paths:  p,
		runner: runner,
		logger: logging.GetLogger("migrate"),
	}
}

func (o *Orchestrator) toolTimeout() time.Duration {
	return time.Duration(o.cfg.ToolTimeoutSeconds) * time.Second
}

// archivePathsFor lists the home-relative configuration paths belonging to
// one desktop environment.
func archivePathsFor(de types.DesktopEnv) []string {
	switch de {
	case types.DesktopGNOME:
		return []string{
			".config/dconf/user",
			".config/gtk-3.0",
			".config/gtk-4.0",
			".config/monitors.xml",
			".local/share/backgrounds",
		}
	case types.DesktopKDE:
		return []string{
			".config/kdeglobals",
			".config/kwinrc",
			".config/plasmarc",
			".config/plasma-org.kde.plasma.desktop-appletsrc",
			".config/kscreenlockerrc",
			".config/gtk-3.0",
			".config/gtk-4.0",
		}
	default:
		return nil
	}
}

// resetPathsFor lists the target-DE paths moved aside before the switch so
// the new desktop starts from a clean slate. Stale leftovers from an
// earlier stint on that desktop would otherwise shadow its defaults.
func resetPathsFor(de types.DesktopEnv) []string {
	switch de {
	case types.DesktopGNOME:
		return []string{".config/dconf/user"}
	case types.DesktopKDE:
		return []string{
			".config/plasma-org.kde.plasma.desktop-appletsrc",
			".config/kwinrc",
		}
	default:
		return nil
	}
}

// PreSwitchResult is what the pre-switch phase hands back to the CLI.
type PreSwitchResult struct {
	SessionRoot string
	Artifacts   archive.Artifacts
	Counts      types.OpCounts
}

// PreSwitch archives the source desktop's configuration, moves aside the
// target desktop's stale leftovers, and finalizes the session with its
// manifest and recovery scripts. Per-path failures are tolerated and
// surfaced in the counts.
func (o *Orchestrator) PreSwitch(ctx context.Context) (PreSwitchResult, error) {
	done := logging.LogOperationStart(o.logger, "pre-switch")
	defer done()

	var result PreSwitchResult

	store := archive.NewStore(o.paths)
	session, err := store.BeginSession(o.mctx)
	if err != nil {
		return result, err
	}
	result.SessionRoot = session.Root

	type job struct {
		rel      string
		mode     archive.Mode
		category string
	}
	var jobs []job

	for _, rel := range archivePathsFor(o.mctx.SourceDE) {
		jobs = append(jobs, job{rel, archive.ModeCopy, string(o.mctx.SourceDE)})
	}
	for _, rel := range resetPathsFor(o.mctx.TargetDE) {
		jobs = append(jobs, job{rel, archive.ModeMove, string(o.mctx.TargetDE)})
	}
	for _, rel := range o.cfg.ExtraArchivePaths {
		jobs = append(jobs, job{rel, archive.ModeCopy, "extra"})
	}

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, errors.ErrInternal, "pre-switch interrupted")
		}

		record, err := session.Archive(filepath.Join(o.mctx.HomeDir, j.rel), j.mode, j.category)
		switch {
		case err != nil:
			result.Counts.Errors++
		case record.Disposition == archive.DispositionSkippedMissing:
			result.Counts.Skipped++
		default:
			result.Counts.Migrated++
		}
	}

	artifacts, err := session.Finalize()
	if err != nil {
		return result, err
	}
	result.Artifacts = artifacts

	o.logger.Info().Str("session", session.Root).Str("counts", result.Counts.String()).
		Msg("Pre-switch phase complete")
	return result, nil
}

// ReconcileInput carries everything the post-switch confirmation step
// needs to show before executing the plan.
type ReconcileInput struct {
	Manifest   archive.Manifest
	PreviousDE types.DesktopEnv
	TargetDE   types.DesktopEnv
	Plan       catalog.ReconciliationPlan
	Stale      bool
}

// ReconcilePlan computes the application reconciliation plan for the
// post-switch phase from the session manifest, the two catalogs, and the
// local install state. Fails closed when a catalog is unavailable.
func (o *Orchestrator) ReconcilePlan(ctx context.Context, manifest archive.Manifest) (ReconcileInput, error) {
	done := logging.LogOperationStart(o.logger, "reconcile-plan")
	defer done()

	input := ReconcileInput{
		Manifest:   manifest,
		PreviousDE: types.DesktopEnv(manifest.SourceDe),
		TargetDE:   types.DesktopEnv(manifest.TargetDe),
	}
	if !input.PreviousDE.Valid() || !input.TargetDE.Valid() {
		return input, errors.Newf(errors.ErrSessionInvalid,
			"manifest names unknown desktop environments %q -> %q", manifest.SourceDe, manifest.TargetDe)
	}

	flatpak := catalog.NewFlatpak(o.runner, o.toolTimeout(), o.mctx.DryRun)
	if !flatpak.Available() {
		return input, errors.New(errors.ErrToolUnavailable, "flatpak is required for application reconciliation")
	}

	fetcher := catalog.NewFetcher(
		o.paths.CatalogCacheDir(),
		o.cfg.Catalogs,
		time.Duration(o.cfg.CacheTTLHours)*time.Hour,
		time.Duration(o.cfg.FetchTimeoutSeconds)*time.Second,
	)

	previous, err := fetcher.Get(ctx, input.PreviousDE)
	if err != nil {
		return input, err
	}
	target, err := fetcher.Get(ctx, input.TargetDE)
	if err != nil {
		return input, err
	}
	input.Stale = previous.Stale || target.Stale

	installed, err := flatpak.Installed(ctx)
	if err != nil {
		return input, err
	}

	input.Plan = catalog.Plan(previous, target, installed)
	o.logger.Info().
		Int("toRemove", len(input.Plan.ToRemove)).
		Int("toInstall", len(input.Plan.ToInstall)).
		Int("alreadyPresent", len(input.Plan.AlreadyPresent)).
		Msg("Reconciliation plan computed")
	return input, nil
}

// ExecuteReconcile runs a computed plan item by item.
func (o *Orchestrator) ExecuteReconcile(ctx context.Context, plan catalog.ReconciliationPlan) types.OpCounts {
	flatpak := catalog.NewFlatpak(o.runner, o.toolTimeout(), o.mctx.DryRun)
	return flatpak.ExecutePlan(ctx, plan)
}

// ReplaySettings extracts the archived settings of the previous desktop
// and re-applies them, best effort, to the current environment. Per-item
// failures are aggregated; only a missing session aborts.
func (o *Orchestrator) ReplaySettings(ctx context.Context, sessionRoot string, manifest archive.Manifest) (types.OpCounts, error) {
	done := logging.LogOperationStart(o.logger, "settings-replay")
	defer done()

	var counts types.OpCounts

	sourceDE := types.DesktopEnv(manifest.SourceDe)
	if !sourceDE.Valid() {
		return counts, errors.Newf(errors.ErrSessionInvalid, "manifest names unknown desktop environment %q", manifest.SourceDe)
	}

	sourceRoot := filepath.Join(sessionRoot, archive.ConfigsDirName, string(sourceDE))
	extractor := settings.NewExtractor(o.runner, o.toolTimeout())
	applier := settings.NewApplier(o.runner, o.toolTimeout(), o.mctx.HomeDir, o.mctx.DryRun)

	var all []settings.ExtractedSetting
	var backgroundSettings []settings.ExtractedSetting

	for _, cat := range settings.CategoriesFor(sourceDE) {
		res, err := extractor.Extract(ctx, cat, sourceRoot)
		if err != nil {
			switch errors.GetErrorCode(err) {
			case errors.ErrNotFound, errors.ErrEmpty:
				o.logger.Info().Str("category", string(cat.ID)).Err(err).Msg("Nothing to migrate for category")
				counts.Skipped++
			case errors.ErrToolUnavailable:
				o.logger.Warn().Str("category", string(cat.ID)).Err(err).Msg("Skipping category, tool unavailable")
				counts.Skipped++
			default:
				o.logger.Error().Str("category", string(cat.ID)).Err(err).Msg("Category extraction failed")
				counts.Errors++
			}
			continue
		}

		o.logger.Info().Str("category", string(cat.ID)).Str("origin", res.Origin.String()).
			Int("count", len(res.Settings)).Msg("Category extracted")
		all = append(all, res.Settings...)
		if cat.ID == settings.CategoryBackground {
			backgroundSettings = res.Settings
		}
	}

	all = dedupeByScopeKey(all)
	counts.Add(applier.Apply(ctx, all))

	// The wallpaper is migrated by file copy even when no background
	// key/value settings were recovered.
	counts.Add(applier.MigrateWallpaper(backgroundSettings, sourceRoot, o.cfg.WallpaperDestination))

	o.logger.Info().Str("counts", counts.String()).Msg("Settings replay complete")
	return counts, nil
}

// dedupeByScopeKey keeps the first occurrence of each scope key across
// category results.
func dedupeByScopeKey(in []settings.ExtractedSetting) []settings.ExtractedSetting {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s.ScopeKey] {
			continue
		}
		seen[s.ScopeKey] = true
		out = append(out, s)
	}
	return out
}
