package scan

import (
	"time"

	"github.com/GriffinCanCode/scan-sentry/internal/config"
)

// Scan loop constants
const (
	// Lower bound on the configured interval; anything faster starves the OCR engine
	MinInterval = config.MinScanInterval

	DefaultInterval   = 100 * time.Millisecond
	DefaultMatchKey   = "g"
	DefaultAdvanceKey = "down"

	// Failed iterations sleep this many intervals (linear, not exponential)
	ErrorBackoffFactor = 2

	// Emit a throughput line every N scans at debug level
	ThroughputEvery = 100
)
