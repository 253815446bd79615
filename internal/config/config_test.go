package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthumble/weightlossbot/internal/config"
	"github.com/matthumble/weightlossbot/internal/server"
)

const configYAML = `
http:
  port: 8080

redis:
  chat:
    addrs:
      - localhost:6379
    prefix: wlb

postgres:
  store:
    addr: localhost:5432
    user: bot
    pass: secret
    name: weightloss

challenge:
  admins: "U1, U2"
  channel: C123

finalboard:
  hour: 9
  timezone: America/New_York
`

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	var c server.Config
	require.NoError(t, config.Load(writeConfig(t), &c))

	assert.Equal(t, int32(8080), c.HTTP.Port)
	assert.Equal(t, []string{"localhost:6379"}, c.Redis.Chat.Addrs)
	assert.Equal(t, "wlb", c.Redis.Chat.Prefix)
	assert.Equal(t, "weightloss", c.Postgres.Store.Name)
	assert.Equal(t, "U1, U2", c.Challenge.Admins)
	assert.Equal(t, "C123", c.Challenge.Channel)
	assert.Equal(t, 9, c.Finalboard.Hour)
	assert.Equal(t, "America/New_York", c.Finalboard.Timezone)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("REDIS_CHAT_PREFIX", "other")

	var c server.Config
	require.NoError(t, config.Load(writeConfig(t), &c))

	assert.Equal(t, int32(9999), c.HTTP.Port)
	assert.Equal(t, "other", c.Redis.Chat.Prefix)
}

func TestLoad_MissingFile(t *testing.T) {
	var c server.Config
	assert.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}
