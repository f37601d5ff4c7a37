// Package control exposes the session commands as a gRPC service.
package control

import "time"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "scansentry.v1.Control"

// Method names
const (
	MethodSetCorner     = "SetCorner"
	MethodStartScan     = "StartScan"
	MethodStopScan      = "StopScan"
	MethodToggleOverlay = "ToggleOverlay"
	MethodConfigure     = "Configure"
	MethodSaveConfig    = "SaveConfig"
	MethodLoadConfig    = "LoadConfig"
	MethodExit          = "Exit"
	MethodStatus        = "Status"
)

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second

	// GracefulStop gets this long before the server is stopped hard
	ShutdownTimeout = 3 * time.Second
)
