package session

import "time"

// Session constants
const (
	// StopScan waits this long for the loop to finish its current iteration
	StopWaitTimeout = 5 * time.Second

	// Notice titles and bodies
	TitleStarted  = "Started"
	TitleStopped  = "Stopped"
	TitleError    = "Error"
	TitleLimit    = "Limit reached"
	TitleCrashed  = "Scan failed"
	MsgStarted    = "Scanning started."
	MsgStopped    = "Scanning has been stopped."
	MsgNoRegion   = "Region not defined. Set corners first."
	MsgLimitFmt   = "Scan limit reached (%d). Scanning stopped."
	MsgCrashedFmt = "Scanning stopped after an internal error: %v"
)
