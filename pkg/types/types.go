// Package types holds the shared value types passed between demigrate
// components: the migration context, desktop environment identifiers,
// and the aggregate result counters every phase reports.
package types

import "fmt"

// DesktopEnv identifies one of the two supported desktop environment families.
type DesktopEnv string

const (
	DesktopGNOME DesktopEnv = "gnome"
	DesktopKDE   DesktopEnv = "kde"
)

// Valid reports whether the identifier names a supported desktop environment.
func (d DesktopEnv) Valid() bool {
	return d == DesktopGNOME || d == DesktopKDE
}

// Other returns the opposite desktop environment.
func (d DesktopEnv) Other() DesktopEnv {
	if d == DesktopGNOME {
		return DesktopKDE
	}
	return DesktopGNOME
}

// Label returns the human-readable name for the desktop environment.
func (d DesktopEnv) Label() string {
	switch d {
	case DesktopGNOME:
		return "GNOME"
	case DesktopKDE:
		return "KDE Plasma"
	default:
		return string(d)
	}
}

// ImageFamily returns the OS image family name shipping this desktop.
func (d DesktopEnv) ImageFamily() string {
	switch d {
	case DesktopGNOME:
		return "bluefin"
	case DesktopKDE:
		return "aurora"
	default:
		return ""
	}
}

// MigrationContext carries the immutable facts of one migration attempt.
// It is constructed once at the command boundary and passed by value to
// every component call; components never mutate it.
type MigrationContext struct {
	// SourceDE is the desktop environment being migrated away from.
	SourceDE DesktopEnv

	// TargetDE is the desktop environment being migrated to.
	TargetDE DesktopEnv

	// SourceImage and TargetImage are the OS image references on either
	// side of the switch, e.g. "ghcr.io/ublue-os/bluefin:stable".
	SourceImage string
	TargetImage string

	// HomeDir is the user's home directory. All home-relative paths in
	// category tables and manifests resolve against it.
	HomeDir string

	// DryRun substitutes a description for every side effect. Every
	// mutating primitive checks this flag immediately before acting, so
	// a dry run exercises the same branching and validation as a real run.
	DryRun bool

	// AssumeYes skips interactive confirmation prompts.
	AssumeYes bool
}

// Validate checks that the context describes a usable migration.
func (c MigrationContext) Validate() error {
	if !c.SourceDE.Valid() {
		return fmt.Errorf("unknown source desktop environment %q", c.SourceDE)
	}
	if !c.TargetDE.Valid() {
		return fmt.Errorf("unknown target desktop environment %q", c.TargetDE)
	}
	if c.SourceDE == c.TargetDE {
		return fmt.Errorf("source and target desktop environment are both %q", c.SourceDE)
	}
	if c.HomeDir == "" {
		return fmt.Errorf("home directory not set")
	}
	return nil
}

// OpCounts is the tri-count summary every phase ends with. Partial success
// is always legible: a phase reports migrated/skipped/errored rather than a
// binary pass or fail.
type OpCounts struct {
	Migrated int
	Skipped  int
	Errors   int
}

// Add accumulates another set of counts.
func (c *OpCounts) Add(other OpCounts) {
	c.Migrated += other.Migrated
	c.Skipped += other.Skipped
	c.Errors += other.Errors
}

// Total returns the number of items considered.
func (c OpCounts) Total() int {
	return c.Migrated + c.Skipped + c.Errors
}

// String renders the canonical "migrated/skipped/errored" summary line.
func (c OpCounts) String() string {
	return fmt.Sprintf("%d migrated, %d skipped, %d errored", c.Migrated, c.Skipped, c.Errors)
}
