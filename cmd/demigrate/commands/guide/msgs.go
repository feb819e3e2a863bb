package guide

// Message constants
const (
	MsgShort = "Show the migration walkthrough"

	MsgLong = `The 'guide' command prints the full migration walkthrough: what to run
before and after the image switch, how to preview changes, and how to
undo a migration.`
)
