package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/c360/ledgerstream/stream"
)

// Settings represents the complete client session configuration
type Settings struct {
	Version    string             `json:"version,omitempty" yaml:"version,omitempty"`
	Endpoints  EndpointSettings   `json:"endpoints" yaml:"endpoints"`
	Connection ConnectionSettings `json:"connection" yaml:"connection"`
	Read       ReadSettings       `json:"read" yaml:"read"`
	Discovery  DiscoverySettings  `json:"discovery" yaml:"discovery"`
	Keepalive  KeepaliveSettings  `json:"keepalive" yaml:"keepalive"`
	Logging    LoggingSettings    `json:"logging" yaml:"logging"`
}

// EndpointSettings defines the server endpoints a session can connect to
type EndpointSettings struct {
	// Candidates are full connection URLs (nats:// or tls://); the
	// discovery service rotates through them
	Candidates []string    `json:"candidates" yaml:"candidates"`
	TLS        TLSSettings `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSSettings for secure connections
type TLSSettings struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	CertFile           string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile            string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	CAFile             string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
}

// ConnectionSettings defines connection identity and tuning
type ConnectionSettings struct {
	Name           string        `json:"name,omitempty" yaml:"name,omitempty"`
	Username       string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string        `json:"password,omitempty" yaml:"password,omitempty"`
	Token          string        `json:"token,omitempty" yaml:"token,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// ReadSettings defines defaults applied to read operations
type ReadSettings struct {
	PageSize     int  `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	ResolveLinks bool `json:"resolve_links,omitempty" yaml:"resolve_links,omitempty"`
}

// DiscoverySettings defines endpoint discovery behavior
type DiscoverySettings struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Interval    time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	MaxAttempts int           `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// KeepaliveSettings defines liveness probing of the connection
type KeepaliveSettings struct {
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoggingSettings defines log output behavior
type LoggingSettings struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// DefaultSettings returns the settings a session starts from before
// any file, environment, or connection-string overrides
func DefaultSettings() *Settings {
	return &Settings{
		Endpoints: EndpointSettings{
			Candidates: []string{"nats://localhost:4222"},
		},
		Connection: ConnectionSettings{
			Name:           "ledgerstream",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Read: ReadSettings{
			PageSize: stream.DefaultPageSize,
		},
		Discovery: DiscoverySettings{
			Enabled:     true,
			Interval:    30 * time.Second,
			MaxAttempts: 10,
		},
		Keepalive: KeepaliveSettings{
			Interval: 10 * time.Second,
			Timeout:  10 * time.Second,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Validate checks if the settings are usable
func (s *Settings) Validate() error {
	if len(s.Endpoints.Candidates) == 0 {
		return errors.New("endpoints.candidates is required")
	}
	for i, candidate := range s.Endpoints.Candidates {
		u, err := url.Parse(candidate)
		if err != nil {
			return fmt.Errorf("endpoints.candidates[%d]: %w", i, err)
		}
		if u.Scheme != "nats" && u.Scheme != "tls" {
			return fmt.Errorf("endpoints.candidates[%d]: unsupported scheme %q", i, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("endpoints.candidates[%d]: missing host", i)
		}
	}

	if s.Read.PageSize < 0 {
		return errors.New("read.page_size cannot be negative")
	}
	if s.Connection.ReconnectWait < 0 {
		return errors.New("connection.reconnect_wait cannot be negative")
	}
	if s.Discovery.Enabled && s.Discovery.MaxAttempts < 1 {
		return errors.New("discovery.max_attempts must be at least 1 when discovery is enabled")
	}
	if s.Keepalive.Interval < 0 || s.Keepalive.Timeout < 0 {
		return errors.New("keepalive intervals cannot be negative")
	}

	if err := s.validateTLS(); err != nil {
		return fmt.Errorf("endpoints.tls: %w", err)
	}

	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s.Logging.Level)
	}

	return nil
}

// validateTLS validates the TLS file settings
func (s *Settings) validateTLS() error {
	tls := s.Endpoints.TLS
	if !tls.Enabled {
		return nil
	}

	if tls.CertFile != "" {
		if _, err := os.Stat(tls.CertFile); err != nil {
			return fmt.Errorf("cert_file: %w", err)
		}
		if tls.KeyFile == "" {
			return errors.New("key_file is required when cert_file is set")
		}
	}
	if tls.KeyFile != "" {
		if _, err := os.Stat(tls.KeyFile); err != nil {
			return fmt.Errorf("key_file: %w", err)
		}
	}
	if tls.CAFile != "" {
		if _, err := os.Stat(tls.CAFile); err != nil {
			return fmt.Errorf("ca_file: %w", err)
		}
	}

	if tls.InsecureSkipVerify {
		_, _ = fmt.Fprintf(
			os.Stderr,
			"WARNING: TLS certificate verification is disabled (insecure_skip_verify=true). This should only be used in development/testing!\n",
		)
	}

	return nil
}

// Clone creates a deep copy of the settings
func (s *Settings) Clone() *Settings {
	if s == nil {
		return &Settings{}
	}

	data, err := json.Marshal(s)
	if err != nil {
		copied := *s
		return &copied
	}

	var clone Settings
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *s
		return &copied
	}

	return &clone
}

// String returns a JSON representation with credentials redacted
func (s *Settings) String() string {
	clone := s.Clone()
	if clone.Connection.Password != "" {
		clone.Connection.Password = "[REDACTED]"
	}
	if clone.Connection.Token != "" {
		clone.Connection.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}

// SafeSettings provides thread-safe access to settings
type SafeSettings struct {
	mu       sync.RWMutex
	settings *Settings
}

// NewSafeSettings creates a new thread-safe settings wrapper
func NewSafeSettings(s *Settings) *SafeSettings {
	if s == nil {
		s = DefaultSettings()
	}
	return &SafeSettings{settings: s}
}

// Get returns a deep copy of the current settings
func (ss *SafeSettings) Get() *Settings {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.settings.Clone()
}

// Update atomically replaces the settings after validation
func (ss *SafeSettings) Update(s *Settings) error {
	if s == nil {
		return errors.New("settings cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.settings = s
	return nil
}

// parseDurationValue accepts either a duration string ("2s") or a
// number of nanoseconds, the two encodings layered files produce
func parseDurationValue(v any) (time.Duration, error) {
	switch value := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(value)
	case float64:
		return time.Duration(value), nil
	default:
		return 0, fmt.Errorf("cannot parse duration from %T", v)
	}
}

// UnmarshalJSON implements custom JSON unmarshaling so duration fields
// accept human-readable strings
func (c *ConnectionSettings) UnmarshalJSON(data []byte) error {
	type Alias ConnectionSettings
	aux := &struct {
		ReconnectWait  any `json:"reconnect_wait,omitempty"`
		RequestTimeout any `json:"request_timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if c.ReconnectWait, err = parseDurationValue(aux.ReconnectWait); err != nil {
		return fmt.Errorf("reconnect_wait: %w", err)
	}
	if c.RequestTimeout, err = parseDurationValue(aux.RequestTimeout); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling so duration fields
// accept human-readable strings
func (d *DiscoverySettings) UnmarshalJSON(data []byte) error {
	type Alias DiscoverySettings
	aux := &struct {
		Interval any `json:"interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if d.Interval, err = parseDurationValue(aux.Interval); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling so duration fields
// accept human-readable strings
func (k *KeepaliveSettings) UnmarshalJSON(data []byte) error {
	type Alias KeepaliveSettings
	aux := &struct {
		Interval any `json:"interval,omitempty"`
		Timeout  any `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(k),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if k.Interval, err = parseDurationValue(aux.Interval); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if k.Timeout, err = parseDurationValue(aux.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

// NormalizeCandidates rewrites candidate URLs to the tls scheme when
// TLS is enabled, so a settings file can list plain hosts once
func (s *Settings) NormalizeCandidates() {
	if !s.Endpoints.TLS.Enabled {
		return
	}
	for i, candidate := range s.Endpoints.Candidates {
		s.Endpoints.Candidates[i] = strings.Replace(candidate, "nats://", "tls://", 1)
	}
}
