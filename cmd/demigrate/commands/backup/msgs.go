package backup

// Message constants
const (
	MsgShort = "Archive the current desktop's configuration before switching"

	MsgLong = `The 'backup' command runs the pre-switch phase. It archives the current
desktop environment's configuration into a timestamped backup session,
moves aside stale configuration of the target desktop, and generates
recovery scripts:

  - restore-configs.sh: writes archived files back, never overwriting
  - rollback.sh: prints how to return to the previous image

The backup session is never deleted by demigrate; remove it yourself once
you are happy with the new desktop.`

	MsgExample = `  # Archive the detected desktop's configuration
  demigrate backup

  # Preview what would be archived
  demigrate backup --dry-run

  # Migrate from GNOME to KDE with an explicit target image
  demigrate backup --from gnome --to kde --to-image ghcr.io/ublue-os/aurora:stable`
)
