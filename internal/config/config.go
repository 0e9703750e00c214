package config

import "time"

// ConsoleConfig is the root configuration for a console client.
type ConsoleConfig struct {
	Device     DeviceConfig     `yaml:"device"`
	Liveness   LivenessConfig   `yaml:"liveness"`
	Session    SessionConfig    `yaml:"session"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Log        LogConfig        `yaml:"log"`
}

// DeviceConfig locates the device's web console.
type DeviceConfig struct {
	Origin           string        `yaml:"origin"`      // e.g. http://esp32.local or https://10.0.0.7
	WSPath           string        `yaml:"ws_path"`     // WebSocket endpoint path
	LogoutPath       string        `yaml:"logout_path"` // Plain GET issued after logout
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadLimit        int64         `yaml:"read_limit"` // Max inbound frame size in bytes
}

// LivenessConfig holds the ping/pong heartbeat settings.
type LivenessConfig struct {
	Disabled      bool          `yaml:"disabled"` // Run without a heartbeat at all
	ProbeInterval time.Duration `yaml:"probe_interval"`
	AckTimeout    time.Duration `yaml:"ack_timeout"`
	ProbeToken    string        `yaml:"probe_token"`
	AckToken      string        `yaml:"ack_token"`
	OnDegraded    string        `yaml:"on_degraded"` // "prompt", "reload" or "ignore"
}

// SessionConfig holds console session settings.
type SessionConfig struct {
	ClearToken       string        `yaml:"clear_token"`
	ReloadDelay      time.Duration `yaml:"reload_delay"`
	ReconnectOnClose bool          `yaml:"reconnect_on_close"`
	BufferSize       int           `yaml:"buffer_size"` // Inbound message channel size
}

// DiscoveryConfig holds mDNS discovery settings.
type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Service  string        `yaml:"service"`
	Domain   string        `yaml:"domain"`
	Instance string        `yaml:"instance"` // Substring filter on the instance name
	Timeout  time.Duration `yaml:"timeout"`
}

// TranscriptConfig selects where console traffic is archived.
type TranscriptConfig struct {
	Driver        string        `yaml:"driver"` // "none", "sqlite" or "postgres"
	SQLitePath    string        `yaml:"sqlite_path"`
	Postgres      DBConfig      `yaml:"postgres"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns *int   `yaml:"min_conns"` // nil means DefaultMinConns; 0 keeps no idle connections
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn" or "error"
}

// Degraded-connection policies.
const (
	OnDegradedPrompt = "prompt"
	OnDegradedReload = "reload"
	OnDegradedIgnore = "ignore"
)

// Transcript drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
