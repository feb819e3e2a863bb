package restore

// Message constants
const (
	MsgShort = "Restore archived configuration files from a backup session"

	MsgLong = `The 'restore' command writes every file archived in a backup session back
to its original location. A destination that already exists is never
overwritten, so running restore twice is safe: the second run skips every
path as already present.

This is the same behavior as the generated restore-configs.sh inside the
backup session, for when you prefer running demigrate itself.`

	MsgExample = `  # Restore the most recent backup session
  demigrate restore

  # See what would be restored
  demigrate restore --dry-run

  # Restore a specific session
  demigrate restore --backup-dir ~/.local/share/demigrate/backups/backup-20260827-101500`
)
