package overlay

import "time"

// Overlay constants
const (
	// Child re-reads the flag this often
	PollInterval = 500 * time.Millisecond

	// Hide waits this long for a graceful exit before killing the child
	DefaultJoinTimeout = time.Second

	// Outline appearance
	BorderWidth = 4.0

	// Hidden subcommand the parent binary is re-executed with
	ChildCommand = "overlay"

	flagActive  = "1"
	flagCleared = "0"
)
