package settings

// Message constants
const (
	MsgShort = "Replay archived desktop settings into the new environment"

	MsgLong = `The 'settings' command re-applies a filtered subset of the previous
desktop's archived settings: fonts, desktop background, and color scheme.

Only an explicit allow-list of keys is ever migrated; desktop-specific
settings with no meaning on the other side are left alone. Structured
settings are read from the archived dconf database with the dconf tool,
with a degraded raw scan as fallback when the tool is unavailable.`

	MsgExample = `  # Replay settings from the most recent backup session
  demigrate settings

  # See exactly which keys would be written
  demigrate settings --dry-run

  # Replay from a specific backup session
  demigrate settings --backup-dir ~/.local/share/demigrate/backups/backup-20260827-101500`
)
