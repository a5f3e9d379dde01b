package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. Only headers get a read deadline: a deadline on the
// whole request would survive the websocket hijack.
const (
	ServerReadHeaderTimeout = 15 * time.Second
	ServerIdleTimeout       = 120 * time.Second
	ServerShutdownTimeout   = 30 * time.Second
)

// Websocket connection settings
const (
	WSWriteTimeout          = 10 * time.Second
	WSPingInterval          = 30 * time.Second
	WSEnvelopeOverheadBytes = 4096
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	PendingSweepInterval = 1 * time.Second
	SweepJobTimeout      = 30 * time.Second
)

// Stats sink writes happen inline on the connection's read loop
const StatsWriteTimeout = 2 * time.Second

// Rate limit window for both connection attempts and transcription submissions
const RateLimitWindow = time.Minute
