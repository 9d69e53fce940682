package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"statusboard/internal/domain/gate"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statusboard.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9000"
timezone = "Pacific/Auckland"

[data]
db = "from-file.db"

[email]
announce_to = ["ops@example.com"]
`)
	cfg, err := Load(path, envMap(map[string]string{
		"STATUSBOARD_DB":              "from-env.db",
		"STATUSBOARD_SLOW_REQUEST_MS": "500",
		"STATUSBOARD_ANNOUNCE_TO":     "a@example.com,b@example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr, "file overrides default")
	assert.Equal(t, "from-env.db", cfg.Data.DB, "env overrides file")
	assert.Equal(t, 500*time.Millisecond, cfg.SlowRequest())
	assert.Equal(t, 50*time.Millisecond, cfg.SlowQuery(), "untouched default survives")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.AnnounceTo)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "[server\naddr ="), envMap(nil))
	assert.Error(t, err, "malformed toml")

	_, err = Load("", envMap(map[string]string{"STATUSBOARD_RATE_LIMIT": "lots"}))
	assert.ErrorContains(t, err, "STATUSBOARD_RATE_LIMIT")
}

func TestConfig_CSRFKey(t *testing.T) {
	cfg := Default()
	key, generated, err := cfg.CSRFKey()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, key, 32)

	cfg.Auth.CSRFKey = strings.Repeat("ab", 32)
	key, generated, err = cfg.CSRFKey()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, byte(0xab), key[0])

	cfg.Auth.CSRFKey = "short"
	_, _, err = cfg.CSRFKey()
	assert.Error(t, err)

	cfg.Auth.CSRFKey = ""
	cfg.Server.Env = EnvProduction
	_, _, err = cfg.CSRFKey()
	assert.Error(t, err, "production requires a key")
}

func TestConfig_Gate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := Default()
	cfg.Auth.PassphraseHash = string(hash)
	g, err := cfg.Gate()
	require.NoError(t, err)
	assert.NoError(t, g.Check("s3cret"))
	assert.ErrorIs(t, g.Check(gate.DefaultPassphrase), gate.ErrWrongPassphrase)

	cfg = Default()
	cfg.Server.Env = EnvProduction
	_, err = cfg.Gate()
	assert.Error(t, err, "default passphrase refused in production")

	cfg.Auth.PassphraseHash = "not-a-hash"
	_, err = cfg.Gate()
	assert.Error(t, err)
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Log.Level = tt.in
		assert.Equal(t, tt.want, cfg.SlogLevel(), tt.in)
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Server.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}
