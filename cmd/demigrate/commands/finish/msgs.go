package finish

// Message constants
const (
	MsgShort = "Reconcile applications after switching desktops"

	MsgLong = `The 'finish' command runs the post-switch phase. It compares the previous
and new image families' application catalogs against what is installed
locally, then removes applications specific to the previous desktop and
installs the ones the new desktop expects.

Shared applications and cross-desktop theme packages are never touched.
Catalogs are cached for 24 hours; when a fresh fetch fails, a cached copy
is used with a warning.`

	MsgExample = `  # Reconcile against the most recent backup session
  demigrate finish

  # Preview the plan without changing anything
  demigrate finish --dry-run

  # Use a specific backup session
  demigrate finish --backup-dir ~/.local/share/demigrate/backups/backup-20260827-101500`
)
