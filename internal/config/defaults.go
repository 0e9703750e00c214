package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSPath            = "/ws"
	DefaultLogoutPath        = "/logout"
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReadLimit         = 64 << 10
	DefaultProbeInterval     = 20 * time.Second
	DefaultAckTimeout        = 5 * time.Second
	DefaultProbeToken        = "ping"
	DefaultAckToken          = "pong"
	DefaultOnDegraded        = OnDegradedPrompt
	DefaultClearToken        = "clearlog"
	DefaultReloadDelay       = 1 * time.Second
	DefaultSessionBufferSize = 1024
	DefaultDiscoveryService  = "_http._tcp"
	DefaultDiscoveryDomain   = "local."
	DefaultDiscoveryTimeout  = 3 * time.Second
	DefaultTranscriptDriver  = DriverNone
	DefaultSQLitePath        = "wsconsole.db"
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 10000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultLogLevel          = "info"
)

// ApplyDefaults fills every zero-valued optional field.
func (c *ConsoleConfig) ApplyDefaults() {
	// Device defaults
	if c.Device.WSPath == "" {
		c.Device.WSPath = DefaultWSPath
	}
	if c.Device.LogoutPath == "" {
		c.Device.LogoutPath = DefaultLogoutPath
	}
	if c.Device.HandshakeTimeout == 0 {
		c.Device.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Device.WriteTimeout == 0 {
		c.Device.WriteTimeout = DefaultWriteTimeout
	}
	if c.Device.ReadLimit == 0 {
		c.Device.ReadLimit = DefaultReadLimit
	}

	// Liveness defaults
	if c.Liveness.ProbeInterval == 0 {
		c.Liveness.ProbeInterval = DefaultProbeInterval
	}
	if c.Liveness.AckTimeout == 0 {
		c.Liveness.AckTimeout = DefaultAckTimeout
	}
	if c.Liveness.ProbeToken == "" {
		c.Liveness.ProbeToken = DefaultProbeToken
	}
	if c.Liveness.AckToken == "" {
		c.Liveness.AckToken = DefaultAckToken
	}
	if c.Liveness.OnDegraded == "" {
		c.Liveness.OnDegraded = DefaultOnDegraded
	}

	// Session defaults
	if c.Session.ClearToken == "" {
		c.Session.ClearToken = DefaultClearToken
	}
	if c.Session.ReloadDelay == 0 {
		c.Session.ReloadDelay = DefaultReloadDelay
	}
	if c.Session.BufferSize == 0 {
		c.Session.BufferSize = DefaultSessionBufferSize
	}

	// Discovery defaults
	if c.Discovery.Service == "" {
		c.Discovery.Service = DefaultDiscoveryService
	}
	if c.Discovery.Domain == "" {
		c.Discovery.Domain = DefaultDiscoveryDomain
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = DefaultDiscoveryTimeout
	}

	// Transcript defaults
	if c.Transcript.Driver == "" {
		c.Transcript.Driver = DefaultTranscriptDriver
	}
	if c.Transcript.SQLitePath == "" {
		c.Transcript.SQLitePath = DefaultSQLitePath
	}
	if c.Transcript.BatchSize == 0 {
		c.Transcript.BatchSize = DefaultBatchSize
	}
	if c.Transcript.FlushInterval == 0 {
		c.Transcript.FlushInterval = DefaultFlushInterval
	}
	if c.Transcript.BufferSize == 0 {
		c.Transcript.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Transcript.Postgres)

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == nil {
		n := DefaultMinConns
		db.MinConns = &n
	}
}
