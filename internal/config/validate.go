package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ConsoleConfig) Validate() error {
	if c.Device.Origin == "" && !c.Discovery.Enabled {
		return errors.New("device.origin is required when discovery is disabled")
	}
	if !strings.HasPrefix(c.Device.WSPath, "/") {
		return fmt.Errorf("device.ws_path must start with '/', got %q", c.Device.WSPath)
	}
	if !strings.HasPrefix(c.Device.LogoutPath, "/") {
		return fmt.Errorf("device.logout_path must start with '/', got %q", c.Device.LogoutPath)
	}
	if c.Device.HandshakeTimeout < 0 || c.Device.WriteTimeout < 0 {
		return errors.New("device timeouts must not be negative")
	}
	if c.Device.ReadLimit < 1 {
		return errors.New("device.read_limit must be >= 1")
	}

	if err := c.Liveness.validate(); err != nil {
		return err
	}

	if c.Session.ClearToken == "" {
		return errors.New("session.clear_token is required")
	}
	if c.Session.BufferSize < 1 {
		return errors.New("session.buffer_size must be >= 1")
	}
	if c.Session.ReloadDelay < 0 {
		return errors.New("session.reload_delay must not be negative")
	}

	if c.Discovery.Enabled && c.Discovery.Timeout <= 0 {
		return errors.New("discovery.timeout must be positive")
	}

	if err := c.Transcript.validate(); err != nil {
		return err
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func (l *LivenessConfig) validate() error {
	switch l.OnDegraded {
	case OnDegradedPrompt, OnDegradedReload, OnDegradedIgnore:
	default:
		return fmt.Errorf("liveness.on_degraded must be one of prompt, reload, ignore, got %q", l.OnDegraded)
	}
	if l.Disabled {
		return nil
	}
	if l.ProbeInterval <= 0 {
		return errors.New("liveness.probe_interval must be positive")
	}
	if l.AckTimeout <= 0 {
		return errors.New("liveness.ack_timeout must be positive")
	}
	if l.AckTimeout >= l.ProbeInterval {
		return fmt.Errorf("liveness.ack_timeout (%s) must be less than probe_interval (%s)", l.AckTimeout, l.ProbeInterval)
	}
	if l.ProbeToken == "" || l.AckToken == "" {
		return errors.New("liveness.probe_token and liveness.ack_token are required")
	}
	if l.ProbeToken == l.AckToken {
		return fmt.Errorf("liveness.probe_token and liveness.ack_token must differ, both are %q", l.ProbeToken)
	}
	return nil
}

func (t *TranscriptConfig) validate() error {
	switch t.Driver {
	case DriverNone:
		return nil
	case DriverSQLite:
		if t.SQLitePath == "" {
			return errors.New("transcript.sqlite_path is required")
		}
	case DriverPostgres:
		if err := t.Postgres.validate("transcript.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("transcript.driver must be one of none, sqlite, postgres, got %q", t.Driver)
	}
	if t.BatchSize < 1 {
		return errors.New("transcript.batch_size must be >= 1")
	}
	if t.BufferSize < 1 {
		return errors.New("transcript.buffer_size must be >= 1")
	}
	if t.FlushInterval <= 0 {
		return errors.New("transcript.flush_interval must be positive")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns != nil {
		if *db.MinConns < 0 {
			return fmt.Errorf("%s.min_conns must be >= 0", prefix)
		}
		if *db.MinConns > db.MaxConns {
			return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, *db.MinConns, db.MaxConns)
		}
	}
	return nil
}
