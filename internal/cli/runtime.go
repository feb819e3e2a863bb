// Package cli holds the shared runtime wiring every demigrate command
// builds on: resolved paths, loaded configuration, the command runner, and
// the cross-cutting flags.
package cli

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/config"
	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/paths"
	"github.com/demigrate/demigrate/pkg/types"
)

// Runtime is constructed once per command invocation from the persistent
// flags and the environment.
type Runtime struct {
	Paths     *paths.Paths
	Config    config.Config
	Runner    executil.Runner
	DryRun    bool
	AssumeYes bool
	BackupDir string
}

// NewRuntime builds the runtime from a command's inherited flags. A
// missing config file falls back to defaults; a malformed one is an
// unrecoverable setup failure.
func NewRuntime(cmd *cobra.Command) (*Runtime, error) {
	flags := cmd.Root().PersistentFlags()
	dryRun, _ := flags.GetBool("dry-run")
	assumeYes, _ := flags.GetBool("yes")
	backupDir, _ := flags.GetString("backup-dir")

	p, err := paths.New()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(p.ConfigFilePath())
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Paths:     p,
		Config:    cfg,
		Runner:    executil.NewExecRunner(),
		DryRun:    dryRun,
		AssumeYes: assumeYes,
		BackupDir: backupDir,
	}, nil
}

// ResolveSession locates the backup session the post-switch phases operate
// on: the --backup-dir override when given, otherwise the most recent
// session under the backup root. A missing session is a session-level
// precondition failure that aborts the enclosing command.
func (r *Runtime) ResolveSession() (string, archive.Manifest, error) {
	root, err := archive.ResolveSessionRoot(r.Paths.BackupRoot(), r.BackupDir)
	if err != nil {
		return "", archive.Manifest{}, err
	}

	manifest, err := archive.LoadManifest(root)
	if err != nil {
		return "", archive.Manifest{}, err
	}
	return root, manifest, nil
}

// MigrationContext builds the immutable per-attempt context passed to
// every component call.
func (r *Runtime) MigrationContext(source, target types.DesktopEnv, sourceImage, targetImage string) types.MigrationContext {
	return types.MigrationContext{
		SourceDE:    source,
		TargetDE:    target,
		SourceImage: sourceImage,
		TargetImage: targetImage,
		HomeDir:     r.Paths.HomeDir(),
		DryRun:      r.DryRun,
		AssumeYes:   r.AssumeYes,
	}
}

// Confirm prompts the user unless --yes was given. Dry runs never prompt:
// previewing is always safe.
func (r *Runtime) Confirm(prompt string) bool {
	if r.AssumeYes || r.DryRun {
		return true
	}
	ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show(prompt)
	return ok
}

// DetectCurrentDE infers the running desktop environment from
// XDG_CURRENT_DESKTOP. Returns the zero value when it cannot tell.
func DetectCurrentDE() types.DesktopEnv {
	current := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(current, "gnome"):
		return types.DesktopGNOME
	case strings.Contains(current, "kde"):
		return types.DesktopKDE
	default:
		return ""
	}
}

// DefaultImage returns the default OS image reference for a desktop
// environment's image family.
func DefaultImage(de types.DesktopEnv) string {
	family := de.ImageFamily()
	if family == "" {
		return ""
	}
	return "ghcr.io/ublue-os/" + family + ":stable"
}
