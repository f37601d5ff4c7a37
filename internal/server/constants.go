// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Entries replayed to a new WebSocket client
	BacklogSize = 200

	// Buffered entries per server subscription before drops
	SubscriberBuffer = 256

	// Per-connection command rate limiting
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Upper bound on a REST request body
	MaxBodyBytes = 64 << 10

	// Default page size for GET /api/events
	DefaultEventsPage = 100

	// Bound on a single broadcast write to a slow client
	WriteTimeout = 2 * time.Second
)
