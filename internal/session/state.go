package session

import (
	"time"

	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/scan"
)

// State is derived from the owned components on every read.
type State int

const (
	Idle State = iota
	RegionPartial
	RegionReady
	Scanning
	OverlayShowing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RegionPartial:
		return "region_partial"
	case RegionReady:
		return "region_ready"
	case Scanning:
		return "scanning"
	case OverlayShowing:
		return "overlay_showing"
	default:
		return "unknown"
	}
}

// Settings are the session-level scan parameters. Reverse is the single
// polarity switch shared by every command surface.
type Settings struct {
	ConfigFile  string
	Interval    time.Duration
	Limit       int
	Targets     []string
	Reverse     bool
	MatchKey    string
	AdvanceKey  string
	CacheSize   int
	Autosave    bool
	CornerDelay time.Duration
}

// Patch updates selected settings; nil fields are left alone.
type Patch struct {
	Interval *time.Duration
	Limit    *int
	Targets  []string
	Reverse  *bool
}

// Status is a point-in-time view for the command surfaces.
type Status struct {
	State       string        `json:"state"`
	TopLeft     *region.Point `json:"top_left,omitempty"`
	BottomRight *region.Point `json:"bottom_right,omitempty"`
	Region      string        `json:"region"`
	Overlay     bool          `json:"overlay"`
	Targets     []string      `json:"targets"`
	Reverse     bool          `json:"reverse"`
	Interval    float64       `json:"interval_seconds"`
	Limit       int           `json:"limit"`
	ConfigFile  string        `json:"config_file,omitempty"`
	Scan        scan.Stats    `json:"scan"`
}
