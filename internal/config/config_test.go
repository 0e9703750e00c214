package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
device:
  origin: http://esp32.local
  ws_path: /console
liveness:
  probe_interval: 10s
  ack_timeout: 2s
  on_degraded: reload
session:
  clear_token: wipe
transcript:
  driver: sqlite
  sqlite_path: /tmp/console.db
log:
  level: debug
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Device.Origin != "http://esp32.local" {
		t.Errorf("Device.Origin = %q, want %q", cfg.Device.Origin, "http://esp32.local")
	}
	if cfg.Device.WSPath != "/console" {
		t.Errorf("Device.WSPath = %q, want %q", cfg.Device.WSPath, "/console")
	}
	if cfg.Liveness.ProbeInterval != 10*time.Second {
		t.Errorf("Liveness.ProbeInterval = %v, want 10s", cfg.Liveness.ProbeInterval)
	}
	if cfg.Liveness.AckTimeout != 2*time.Second {
		t.Errorf("Liveness.AckTimeout = %v, want 2s", cfg.Liveness.AckTimeout)
	}
	if cfg.Liveness.OnDegraded != OnDegradedReload {
		t.Errorf("Liveness.OnDegraded = %q, want %q", cfg.Liveness.OnDegraded, OnDegradedReload)
	}
	if cfg.Session.ClearToken != "wipe" {
		t.Errorf("Session.ClearToken = %q, want %q", cfg.Session.ClearToken, "wipe")
	}
	if cfg.Transcript.Driver != DriverSQLite {
		t.Errorf("Transcript.Driver = %q, want %q", cfg.Transcript.Driver, DriverSQLite)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DEVICE_ORIGIN", "https://10.0.0.7")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
device:
  origin: ${TEST_DEVICE_ORIGIN}
transcript:
  driver: postgres
  postgres:
    host: localhost
    name: console
    user: console
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Device.Origin != "https://10.0.0.7" {
		t.Errorf("Device.Origin = %q, want %q", cfg.Device.Origin, "https://10.0.0.7")
	}
	if cfg.Transcript.Postgres.Password != "secret123" {
		t.Errorf("Transcript.Postgres.Password = %q, want %q", cfg.Transcript.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
device:
  origin: http://esp32.local
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Device.WSPath != DefaultWSPath {
		t.Errorf("Device.WSPath = %q, want default %q", cfg.Device.WSPath, DefaultWSPath)
	}
	if cfg.Device.LogoutPath != DefaultLogoutPath {
		t.Errorf("Device.LogoutPath = %q, want default %q", cfg.Device.LogoutPath, DefaultLogoutPath)
	}
	if cfg.Liveness.ProbeInterval != DefaultProbeInterval {
		t.Errorf("Liveness.ProbeInterval = %v, want default %v", cfg.Liveness.ProbeInterval, DefaultProbeInterval)
	}
	if cfg.Liveness.AckTimeout != DefaultAckTimeout {
		t.Errorf("Liveness.AckTimeout = %v, want default %v", cfg.Liveness.AckTimeout, DefaultAckTimeout)
	}
	if cfg.Liveness.ProbeToken != "ping" || cfg.Liveness.AckToken != "pong" {
		t.Errorf("tokens = %q/%q, want ping/pong", cfg.Liveness.ProbeToken, cfg.Liveness.AckToken)
	}
	if cfg.Session.ClearToken != "clearlog" {
		t.Errorf("Session.ClearToken = %q, want clearlog", cfg.Session.ClearToken)
	}
	if cfg.Transcript.Driver != DriverNone {
		t.Errorf("Transcript.Driver = %q, want %q", cfg.Transcript.Driver, DriverNone)
	}
	if cfg.Transcript.Postgres.Port != DefaultDBPort {
		t.Errorf("Transcript.Postgres.Port = %d, want default %d", cfg.Transcript.Postgres.Port, DefaultDBPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaulted config: %v", err)
	}
}

func TestLoadWithDefaultsEmptyPath(t *testing.T) {
	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Device.Origin != "" {
		t.Errorf("Device.Origin = %q, want empty", cfg.Device.Origin)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	withOrigin := func(mutate func(*ConsoleConfig)) *ConsoleConfig {
		cfg := Default()
		cfg.Device.Origin = "http://esp32.local"
		if mutate != nil {
			mutate(cfg)
		}
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *ConsoleConfig
		wantErr string
	}{
		{
			name:    "missing origin",
			cfg:     Default(),
			wantErr: "device.origin is required when discovery is disabled",
		},
		{
			name: "discovery instead of origin",
			cfg: func() *ConsoleConfig {
				cfg := Default()
				cfg.Discovery.Enabled = true
				return cfg
			}(),
			wantErr: "",
		},
		{
			name:    "ws path without slash",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Device.WSPath = "ws" }),
			wantErr: `device.ws_path must start with '/', got "ws"`,
		},
		{
			name:    "ack timeout not below probe interval",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Liveness.AckTimeout = 20 * time.Second }),
			wantErr: "liveness.ack_timeout (20s) must be less than probe_interval (20s)",
		},
		{
			name:    "identical tokens",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Liveness.AckToken = "ping" }),
			wantErr: `liveness.probe_token and liveness.ack_token must differ, both are "ping"`,
		},
		{
			name: "disabled liveness skips timing checks",
			cfg: withOrigin(func(c *ConsoleConfig) {
				c.Liveness.Disabled = true
				c.Liveness.AckTimeout = time.Hour
			}),
			wantErr: "",
		},
		{
			name:    "unknown degraded policy",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Liveness.OnDegraded = "panic" }),
			wantErr: `liveness.on_degraded must be one of prompt, reload, ignore, got "panic"`,
		},
		{
			name:    "unknown transcript driver",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Transcript.Driver = "mysql" }),
			wantErr: `transcript.driver must be one of none, sqlite, postgres, got "mysql"`,
		},
		{
			name: "missing postgres password",
			cfg: withOrigin(func(c *ConsoleConfig) {
				c.Transcript.Driver = DriverPostgres
				c.Transcript.Postgres.Host = "localhost"
				c.Transcript.Postgres.Name = "console"
				c.Transcript.Postgres.User = "console"
			}),
			wantErr: "transcript.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			cfg: withOrigin(func(c *ConsoleConfig) {
				c.Transcript.Driver = DriverPostgres
				c.Transcript.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: intPtr(5)}
			}),
			wantErr: "transcript.postgres.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "bad log level",
			cfg:     withOrigin(func(c *ConsoleConfig) { c.Log.Level = "trace" }),
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "valid config",
			cfg:     withOrigin(nil),
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestLoadWithDefaultsMinConns(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{
			name: "omitted",
			yaml: "transcript:\n  postgres:\n    host: db\n",
			want: DefaultMinConns,
		},
		{
			name: "explicit zero",
			yaml: "transcript:\n  postgres:\n    host: db\n    min_conns: 0\n",
			want: 0,
		},
		{
			name: "explicit value",
			yaml: "transcript:\n  postgres:\n    host: db\n    min_conns: 3\n",
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeTempFile(t, tt.yaml))
			if err != nil {
				t.Fatalf("LoadWithDefaults failed: %v", err)
			}
			got := cfg.Transcript.Postgres.MinConns
			if got == nil {
				t.Fatal("MinConns = nil after defaults")
			}
			if *got != tt.want {
				t.Errorf("MinConns = %d, want %d", *got, tt.want)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
