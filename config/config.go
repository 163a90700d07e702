package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port      int    `toml:"port"`
	Host      string `toml:"host"`
	RealmID   int64  `toml:"realm_id"` // Realm used by login and the CLI when none is given
	BodyLimit int    `toml:"body_limit"`
}

type StorageConfig struct {
	Driver     string `toml:"driver"`      // "bolt" or "sqlite"; users and streams always live in bolt
	DataDir    string `toml:"data_dir"`    // Directory for the bolt database
	SQLitePath string `toml:"sqlite_path"` // Draft database when driver is "sqlite"
}

type JWTConfig struct {
	Secret string   `toml:"secret"` // For JWT signing
	TTL    Duration `toml:"ttl"`
}

type DraftsConfig struct {
	MaxMessageLength int `toml:"max_message_length"`
	MaxTopicLength   int `toml:"max_topic_length"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
}

type SSLConfig struct {
	Enabled    bool   `toml:"enabled"`
	CertFile   string `toml:"cert_file"`    // Path to fullchain.pem
	KeyFile    string `toml:"key_file"`     // Path to privkey.pem
	Domain     string `toml:"domain"`       // Domain name for HSTS
	HSTSMaxAge int    `toml:"hsts_max_age"` // Max age for HSTS in seconds
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	JWT       JWTConfig       `toml:"jwt"`
	Drafts    DraftsConfig    `toml:"drafts"`
	Log       LogConfig       `toml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	SSL       SSLConfig       `toml:"ssl"`
}

// Duration is a time.Duration read from a TOML string such as "24h"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file overrides a value
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.RealmID = 1
	config.Server.BodyLimit = 4 * 1024 * 1024

	config.Storage.Driver = "bolt"
	config.Storage.DataDir = "./data"

	config.JWT.TTL = Duration{24 * time.Hour}

	config.Drafts.MaxMessageLength = 10000
	config.Drafts.MaxTopicLength = 60

	config.Log.Level = "info"
	config.Log.Format = "console"

	config.RateLimit.Requests = 100
	config.RateLimit.Window = Duration{time.Minute}

	config.SSL.HSTSMaxAge = 31536000 // 1 year

	return &config
}

// LoadConfig reads configPath over the defaults. A missing file is only an
// error when required is set, so a bare checkout runs on defaults.
func LoadConfig(configPath string, required bool) (*Config, error) {
	config := Default()

	_, err := toml.DecodeFile(configPath, config)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || required {
			return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
	}

	if secret := os.Getenv("DRAFTSYNC_JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}
	if config.Storage.SQLitePath == "" {
		config.Storage.SQLitePath = filepath.Join(config.Storage.DataDir, "drafts.sqlite")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "bolt":
	case "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}

	if c.JWT.TTL.Duration <= 0 {
		return fmt.Errorf("jwt.ttl must be positive")
	}

	if c.Drafts.MaxMessageLength <= 0 || c.Drafts.MaxTopicLength <= 0 {
		return fmt.Errorf("draft length limits must be positive")
	}

	if c.RateLimit.Requests < 0 || (c.RateLimit.Requests > 0 && c.RateLimit.Window.Duration <= 0) {
		return fmt.Errorf("invalid rate limit %d per %s", c.RateLimit.Requests, c.RateLimit.Window)
	}

	if c.SSL.Enabled {
		if err := c.ValidateSSL(); err != nil {
			return fmt.Errorf("SSL configuration error: %w", err)
		}
	}
	return nil
}

// ValidateSSL checks if the SSL configuration is valid
func (c *Config) ValidateSSL() error {
	if !c.SSL.Enabled {
		return nil
	}

	if c.SSL.CertFile == "" {
		return fmt.Errorf("SSL certificate file path is required")
	}

	if c.SSL.KeyFile == "" {
		return fmt.Errorf("SSL key file path is required")
	}

	// Try loading the certificates to verify they're valid
	_, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load SSL certificates: %w", err)
	}

	return nil
}

// ValidateServe additionally checks what only the HTTP server needs
func (c *Config) ValidateServe() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required (or set DRAFTSYNC_JWT_SECRET)")
	}
	return nil
}

// HSTSMaxAge returns the Strict-Transport-Security max age, zero when HSTS is off
func (c *Config) HSTSMaxAge() int {
	if !c.SSL.Enabled || c.SSL.Domain == "" {
		return 0
	}
	return c.SSL.HSTSMaxAge
}
