package scan

import (
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/scan-sentry/internal/region"
)

// Options configures one scan session.
type Options struct {
	Interval   time.Duration
	Limit      int // 0 = unbounded
	Targets    []string
	Reverse    bool
	MatchKey   string
	AdvanceKey string
	CacheSize  int
}

func (o Options) withDefaults() Options {
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.MatchKey == "" {
		o.MatchKey = DefaultMatchKey
	}
	if o.AdvanceKey == "" {
		o.AdvanceKey = DefaultAdvanceKey
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}

// Session is the immutable description of one scanning run. Its region is a
// snapshot taken at start; later corner edits do not reach the loop.
type Session struct {
	ID      uuid.UUID
	Region  region.Region
	Rect    image.Rectangle
	Started time.Time
	Options Options
}

// Reason explains why a session ended.
type Reason int

const (
	StopRequested Reason = iota
	LimitReached
	Fatal
)

func (r Reason) String() string {
	switch r {
	case StopRequested:
		return "stop_requested"
	case LimitReached:
		return "limit_reached"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Stats is the published view of the running (or last) session.
type Stats struct {
	SessionID    string    `json:"session_id,omitempty"`
	Running      bool      `json:"running"`
	Scans        int       `json:"scans"`
	Errors       int       `json:"errors"`
	CacheHits    int       `json:"cache_hits"`
	CacheEntries int       `json:"cache_entries"`
	CacheResets  int       `json:"cache_resets"`
	Matches      int       `json:"matches"`
	LastText     string    `json:"last_text,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Started      time.Time `json:"started,omitempty"`
	// Engine is the OCR circuit breaker state, empty when unguarded.
	Engine string `json:"engine,omitempty"`
}

// Summary is handed to the completion callback when a session ends.
type Summary struct {
	Session  *Session
	Reason   Reason
	Stats    Stats
	Duration time.Duration
	Err      error // set for Fatal
}
