// Package config loads settings from defaults, an optional TOML file and
// STATUSBOARD_* environment variables, in that order of precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"statusboard/internal/domain/gate"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "statusboard.toml"

// EnvProduction is the Server.Env value that enables production checks.
const EnvProduction = "production"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Auth   AuthConfig   `toml:"auth"`
	Email  EmailConfig  `toml:"email"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	Env           string `toml:"env"`
	BaseURL       string `toml:"base_url"`
	Timezone      string `toml:"timezone"`
	RateLimit     int    `toml:"rate_limit"` // requests per second per client
	SlowRequestMs int    `toml:"slow_request_ms"`
}

// DataConfig configures storage.
type DataConfig struct {
	DB          string `toml:"db"`
	SlowQueryMs int    `toml:"slow_query_ms"`
}

// AuthConfig configures the dashboard gate and CSRF protection.
// PassphraseHash, when set, takes precedence over Passphrase.
type AuthConfig struct {
	Passphrase     string `toml:"passphrase"`
	PassphraseHash string `toml:"passphrase_hash"`
	CSRFKey        string `toml:"csrf_key"` // 64 hex characters
}

// EmailConfig configures update announcements. An empty ResendKey logs
// announcements instead of sending them.
type EmailConfig struct {
	ResendKey  string   `toml:"resend_key"`
	From       string   `toml:"from"`
	AnnounceTo []string `toml:"announce_to"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			Env:           "development",
			Timezone:      "UTC",
			RateLimit:     10,
			SlowRequestMs: 200,
		},
		Data: DataConfig{
			DB:          "statusboard.db",
			SlowQueryMs: 50,
		},
		Auth: AuthConfig{
			Passphrase: gate.DefaultPassphrase,
		},
		Email: EmailConfig{
			From: "Status Board <status@example.com>",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path and
// the environment read through getenv.
// PRE: getenv is non-nil (os.Getenv in production)
// POST: a missing file at path is not an error; a malformed one is
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("STATUSBOARD_ADDR", &c.Server.Addr)
	setString("STATUSBOARD_ENV", &c.Server.Env)
	setString("STATUSBOARD_BASE_URL", &c.Server.BaseURL)
	setString("STATUSBOARD_TZ", &c.Server.Timezone)
	setString("STATUSBOARD_DB", &c.Data.DB)
	setString("STATUSBOARD_PASSPHRASE", &c.Auth.Passphrase)
	setString("STATUSBOARD_PASSPHRASE_HASH", &c.Auth.PassphraseHash)
	setString("STATUSBOARD_CSRF_KEY", &c.Auth.CSRFKey)
	setString("STATUSBOARD_RESEND_KEY", &c.Email.ResendKey)
	setString("STATUSBOARD_RESEND_FROM", &c.Email.From)
	setString("STATUSBOARD_LOG_LEVEL", &c.Log.Level)
	if v := getenv("STATUSBOARD_ANNOUNCE_TO"); v != "" {
		c.Email.AnnounceTo = strings.Split(v, ",")
	}

	for key, dst := range map[string]*int{
		"STATUSBOARD_RATE_LIMIT":      &c.Server.RateLimit,
		"STATUSBOARD_SLOW_REQUEST_MS": &c.Server.SlowRequestMs,
		"STATUSBOARD_SLOW_QUERY_MS":   &c.Data.SlowQueryMs,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether production checks apply.
func (c Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// CSRFKey decodes the configured CSRF key. Outside production a random key
// is generated when none is set; generated reports that case.
func (c Config) CSRFKey() (key []byte, generated bool, err error) {
	if c.Auth.CSRFKey != "" {
		key, err := hex.DecodeString(c.Auth.CSRFKey)
		if err != nil || len(key) != 32 {
			return nil, false, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, false, nil
	}
	if c.IsProduction() {
		return nil, false, errors.New("csrf key is required in production")
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate csrf key: %w", err)
	}
	return key, true, nil
}

// Gate builds the passphrase gate. Production refuses the default passphrase.
func (c Config) Gate() (*gate.Gate, error) {
	if c.Auth.PassphraseHash != "" {
		g, err := gate.FromHash(c.Auth.PassphraseHash)
		if err != nil {
			return nil, fmt.Errorf("passphrase hash: %w", err)
		}
		return g, nil
	}
	if c.IsProduction() && c.Auth.Passphrase == gate.DefaultPassphrase {
		return nil, errors.New("the default passphrase cannot be used in production")
	}
	return gate.New(c.Auth.Passphrase)
}

// Location resolves Server.Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Server.Timezone)
}

// SlogLevel parses Log.Level; unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SlowRequest is Server.SlowRequestMs as a duration.
func (c Config) SlowRequest() time.Duration {
	return time.Duration(c.Server.SlowRequestMs) * time.Millisecond
}

// SlowQuery is Data.SlowQueryMs as a duration.
func (c Config) SlowQuery() time.Duration {
	return time.Duration(c.Data.SlowQueryMs) * time.Millisecond
}
