package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"), false)
	require.NoError(t, err)

	want := Default()
	want.Storage.SQLitePath = filepath.Join("data", "drafts.sqlite")
	assert.Equal(t, want, cfg)
	assert.Error(t, cfg.ValidateServe())
}

func TestLoadConfig_MissingRequiredFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"), true)
	assert.Error(t, err)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080

[storage]
driver = "sqlite"
sqlite_path = "/tmp/drafts.db"

[jwt]
secret = "s3cret"
ttl = "2h"

[drafts]
max_topic_length = 80

[rate_limit]
requests = 10
window = "30s"
`)

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/drafts.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.NoError(t, cfg.ValidateServe())
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL.Duration)
	assert.Equal(t, 10000, cfg.Drafts.MaxMessageLength)
	assert.Equal(t, 80, cfg.Drafts.MaxTopicLength)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window.Duration)
}

func TestLoadConfig_SecretFromEnvironment(t *testing.T) {
	t.Setenv("DRAFTSYNC_JWT_SECRET", "from-env")
	cfg, err := LoadConfig(writeConfig(t, "[jwt]\nsecret = \"from-file\"\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad toml":       "[server\nport = 1",
		"bad driver":     "[storage]\ndriver = \"postgres\"\n",
		"bad port":       "[server]\nport = 70000\n",
		"bad duration":   "[jwt]\nttl = \"forever\"\n",
		"zero limit":     "[drafts]\nmax_message_length = 0\n",
		"ssl no cert":    "[ssl]\nenabled = true\n",
		"window missing": "[rate_limit]\nrequests = 5\nwindow = \"0s\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body), true)
			assert.Error(t, err)
		})
	}
}

func TestHSTSMaxAge(t *testing.T) {
	cfg := Default()
	assert.Zero(t, cfg.HSTSMaxAge())

	cfg.SSL.Enabled = true
	assert.Zero(t, cfg.HSTSMaxAge())

	cfg.SSL.Domain = "chat.example.com"
	assert.Equal(t, 31536000, cfg.HSTSMaxAge())
}
