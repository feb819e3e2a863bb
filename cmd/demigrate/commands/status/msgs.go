package status

// Message constants
const (
	MsgShort = "Show the latest backup session and catalog cache state"

	MsgLong = `The 'status' command summarizes the most recent backup session (when it
was taken, which switch it covers, what was archived) and the freshness of
the cached application catalogs.`
)
