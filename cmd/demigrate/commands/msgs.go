package commands

// Message constants
const (
	MsgShort = "Migrate desktop configuration between GNOME and KDE image families"

	MsgLong = `demigrate moves your desktop configuration across a switch between the
GNOME (bluefin) and KDE Plasma (aurora) image families.

A migration has two phases around the image rebase:

  1. demigrate backup    archive the current desktop's configuration and
                         generate recovery scripts (run before rebasing)
  2. demigrate finish    reconcile desktop-bundled applications against the
                         new image's catalog (run after rebooting)

Optionally, 'demigrate settings' replays a best-effort subset of the
archived settings (fonts, background, color scheme) into the new desktop.

All commands accept --dry-run for a faithful preview of every change.`
)
