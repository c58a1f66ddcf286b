package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a scallionDB server.
type ServerConfig struct {
	// client facing transport
	Endpoint  string
	Transport string // tcp or unix

	// storage
	DataDir  string
	SkipLoad bool

	// broker parameters
	Workers               int
	HeartbeatIntervalMs   int64
	HeartbeatLiveness     int
	ExpectedPerformanceMs int64
	SaveLimit             int

	// worker parameters
	ReconnectInitialMs int64
	ReconnectMaxMs     int64
	ChunkSize          int
	StreamPauseMs      int64

	// HTTP admin endpoint, empty disables it
	AdminEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no flags are set.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:              "0.0.0.0:5555",
		Transport:             "tcp",
		DataDir:               "data",
		Workers:               4,
		HeartbeatIntervalMs:   1000,
		HeartbeatLiveness:     3,
		ExpectedPerformanceMs: 5000,
		SaveLimit:             10,
		ReconnectInitialMs:    1000,
		ReconnectMaxMs:        32000,
		ChunkSize:             64 * 1024,
		StreamPauseMs:         100,
		LogLevel:              "info",
	}
}

// HeartbeatInterval returns the heartbeat interval as a duration.
func (c *ServerConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// LivenessWindow is the time a worker may stay silent before it is purged.
func (c *ServerConfig) LivenessWindow() time.Duration {
	return c.HeartbeatInterval() * time.Duration(c.HeartbeatLiveness)
}

// ExpectedPerformance returns the default request deadline.
func (c *ServerConfig) ExpectedPerformance() time.Duration {
	return time.Duration(c.ExpectedPerformanceMs) * time.Millisecond
}

// ReconnectInitial returns the first worker backoff interval.
func (c *ServerConfig) ReconnectInitial() time.Duration {
	return time.Duration(c.ReconnectInitialMs) * time.Millisecond
}

// ReconnectMax returns the worker backoff ceiling.
func (c *ServerConfig) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMs) * time.Millisecond
}

// StreamPause returns the pause between two streamed chunks.
func (c *ServerConfig) StreamPause() time.Duration {
	return time.Duration(c.StreamPauseMs) * time.Millisecond
}

// Validate checks the configuration for values the server cannot run with.
func (c *ServerConfig) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("endpoint must not be empty")
	case c.Transport != "tcp" && c.Transport != "unix":
		return fmt.Errorf("invalid transport %q, must be tcp or unix", c.Transport)
	case c.Workers < 1:
		return fmt.Errorf("at least one worker is required, got %d", c.Workers)
	case c.HeartbeatIntervalMs <= 0:
		return fmt.Errorf("heartbeat interval must be positive, got %d ms", c.HeartbeatIntervalMs)
	case c.HeartbeatLiveness < 1:
		return fmt.Errorf("heartbeat liveness must be at least 1, got %d", c.HeartbeatLiveness)
	case c.SaveLimit < 1:
		return fmt.Errorf("save limit must be at least 1, got %d", c.SaveLimit)
	case c.ChunkSize < 1:
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	case c.ReconnectInitialMs <= 0 || c.ReconnectMaxMs < c.ReconnectInitialMs:
		return fmt.Errorf("invalid reconnect backoff %d..%d ms", c.ReconnectInitialMs, c.ReconnectMaxMs)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Broker")
	addField("Endpoint", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Heartbeat Interval", fmt.Sprintf("%d ms", c.HeartbeatIntervalMs))
	addField("Heartbeat Liveness", strconv.Itoa(c.HeartbeatLiveness))
	addField("Expected Performance", fmt.Sprintf("%d ms", c.ExpectedPerformanceMs))

	addSection("Workers")
	addField("Workers", strconv.Itoa(c.Workers))
	addField("Reconnect Backoff", fmt.Sprintf("%d..%d ms", c.ReconnectInitialMs, c.ReconnectMaxMs))
	addField("Chunk Size", fmt.Sprintf("%d bytes", c.ChunkSize))
	addField("Stream Pause", fmt.Sprintf("%d ms", c.StreamPauseMs))

	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Save Limit", fmt.Sprintf("%d writes", c.SaveLimit))
	addField("Load On Start", strconv.FormatBool(!c.SkipLoad))

	addSection("Admin")
	if c.AdminEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.AdminEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	Transport              string // tcp or unix
	TimeoutMs              int64  // sent as timeout override, 0 uses the server default
	ConnectTimeoutMs       int64
	RetryCount             int
	ConnectionsPerEndpoint int
}

// Timeout returns the request timeout override as a duration.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ConnectTimeout returns the dial timeout as a duration.
func (c *ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Transport", c.Transport)
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMs))
	addField("Connect Timeout", fmt.Sprintf("%d ms", c.ConnectTimeoutMs))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections", strconv.Itoa(max(1, c.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
