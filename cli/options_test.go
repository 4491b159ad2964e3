package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"

	"github.com/riemann-bridge/statsd-riemann/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliConfig_Help(t *testing.T) {
	_, err, shown := NewConfigFromCLI([]string{"statsd-riemann", "-h"})

	require.NoError(t, err)
	assert.True(t, shown)
}

func TestCliConfig_PrintConfig(t *testing.T) {
	var out bytes.Buffer

	withWriter := func(app *cli.App) error {
		app.Writer = &out
		return nil
	}

	c, err, shown := NewConfigFromCLI([]string{
		"statsd-riemann",
		"--riemann_host", "riemann.local",
		"--http_port", "8080",
		"--metrics_http", "/metrics",
		"--print_config",
	}, withWriter)

	require.NoError(t, err)
	assert.True(t, shown)

	assert.Contains(t, out.String(), "[riemann]")
	assert.Contains(t, out.String(), "# Port to listen on")
	assert.Contains(t, out.String(), "http_path = \"/metrics\"")

	printed := config.NewConfig()

	_, err = toml.Decode(out.String(), &printed)
	require.NoError(t, err)

	assert.Equal(t, c.Riemann, printed.Riemann)
	assert.Equal(t, c.HTTP, printed.HTTP)
	assert.Equal(t, c.Metrics, printed.Metrics)
}

func TestCliConfig_Defaults(t *testing.T) {
	c, err, shown := NewConfigFromCLI([]string{"statsd-riemann"})

	require.NoError(t, err)
	require.False(t, shown)

	assert.Equal(t, "localhost", c.Riemann.Host)
	assert.Equal(t, 5555, c.Riemann.Port)
	assert.Equal(t, "udp", c.Riemann.Transport)
	assert.Equal(t, 1000, c.Riemann.ReconnectInterval)
	assert.Equal(t, "udp", c.Source.Adapter)
	assert.Equal(t, ":8125", c.Source.UDP.Addr)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.Events.Tags)
	assert.False(t, c.Riemann.Debug)
}

func TestCliConfig_Flags(t *testing.T) {
	c, err, _ := NewConfigFromCLI([]string{
		"statsd-riemann",
		"--riemann_host", "riemann.local",
		"--riemann_port", "5556",
		"--riemann_transport", "tcp",
		"--riemann_reconnect_interval", "250",
		"--parse_namespace",
		"--tag_with_event_parts",
		"--tags", "statsd, prod",
		"--ttl", "12.5",
		"--source", "nats",
		"--nats_subject", "metrics",
		"--http_port", "8080",
		"--metrics_http", "/metrics",
		"--metrics_tags", "env:prod,region:eu",
		"--metrics_log_filter", "events_received_total,packets_received_total",
		"--presets", "heroku",
		"--debug",
	})

	require.NoError(t, err)

	assert.Equal(t, "riemann.local", c.Riemann.Host)
	assert.Equal(t, 5556, c.Riemann.Port)
	assert.True(t, c.Riemann.Stream())
	assert.Equal(t, 250, c.Riemann.ReconnectInterval)
	assert.True(t, c.Events.ParseNamespace)
	assert.True(t, c.Events.TagWithEventParts)
	assert.Equal(t, []string{"statsd", "prod"}, c.Events.Tags)
	assert.Equal(t, 12.5, c.Events.TTL)
	assert.Equal(t, "nats", c.Source.Adapter)
	assert.Equal(t, "metrics", c.Source.NATS.Subject)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, "/metrics", c.Metrics.HTTP)
	assert.Equal(t, map[string]string{"env": "prod", "region": "eu"}, c.Metrics.Tags)
	assert.Equal(t, []string{"events_received_total", "packets_received_total"}, c.Metrics.LogFilter)
	assert.Equal(t, []string{"heroku"}, c.UserPresets)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.Riemann.Debug)
}

func TestCliConfig_Env(t *testing.T) {
	t.Setenv("STATSD_RIEMANN_RIEMANN_HOST", "env.riemann.local")
	t.Setenv("STATSD_RIEMANN_TAGS", "from-env")

	c, err, _ := NewConfigFromCLI([]string{"statsd-riemann", "--tags", "from-flag"})

	require.NoError(t, err)

	assert.Equal(t, "env.riemann.local", c.Riemann.Host)
	assert.Equal(t, []string{"from-flag"}, c.Events.Tags)
}

func TestCliConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statsd-riemann.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[riemann]
host = "file.riemann.local"
port = 6000

[events]
tags = ["from-file"]
`), 0o600))

	t.Run("flag overrides file", func(t *testing.T) {
		c, err, _ := NewConfigFromCLI([]string{"statsd-riemann", "--config", path, "--riemann_port", "7000"})

		require.NoError(t, err)

		assert.Equal(t, path, c.ConfigFilePath)
		assert.Equal(t, "file.riemann.local", c.Riemann.Host)
		assert.Equal(t, 7000, c.Riemann.Port)
		assert.Equal(t, []string{"from-file"}, c.Events.Tags)
	})

	t.Run("env path", func(t *testing.T) {
		t.Setenv("STATSD_RIEMANN_CONFIG", path)

		c, err, _ := NewConfigFromCLI([]string{"statsd-riemann"})

		require.NoError(t, err)

		assert.Equal(t, "file.riemann.local", c.Riemann.Host)
		assert.Equal(t, 6000, c.Riemann.Port)
	})

	t.Run("riemann debug enables debug logs", func(t *testing.T) {
		debugPath := filepath.Join(t.TempDir(), "debug.toml")

		require.NoError(t, os.WriteFile(debugPath, []byte(`
log_level = "warn"

[riemann]
debug = true
`), 0o600))

		c, err, _ := NewConfigFromCLI([]string{"statsd-riemann", "--config", debugPath})

		require.NoError(t, err)

		assert.False(t, c.Debug)
		assert.True(t, c.Riemann.Debug)
		assert.Equal(t, "debug", c.LogLevel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err, _ := NewConfigFromCLI([]string{"statsd-riemann", "--config=" + path + ".missing"})

		assert.Error(t, err)
	})
}

func TestConfigPathFromArgs(t *testing.T) {
	assert.Equal(t, "a.toml", configPathFromArgs([]string{"bin", "--config", "a.toml"}))
	assert.Equal(t, "b.toml", configPathFromArgs([]string{"bin", "-config=b.toml"}))
	assert.Equal(t, "", configPathFromArgs([]string{"bin", "--", "--config", "c.toml"}))
	assert.Equal(t, "", configPathFromArgs([]string{"bin", "config", "d.toml"}))
	assert.Equal(t, "", configPathFromArgs([]string{"bin", "--config"}))
}

func TestNameToEnvVarName(t *testing.T) {
	assert.Equal(t, "STATSD_RIEMANN_RIEMANN_RECONNECT_INTERVAL", nameToEnvVarName("riemann_reconnect_interval"))
	assert.Equal(t, "STATSD_RIEMANN_HEALTH_PATH", nameToEnvVarName("health-path"))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, map[string]string{"env": "prod", "url": "http://x"}, parseTags("env:prod,url:http://x,broken"))
}

func TestCliConfig_EmbeddedNats(t *testing.T) {
	c, err, _ := NewConfigFromCLI([]string{"statsd-riemann", "--source", "nats", "--embed_nats", "--enats_addr", "nats://127.0.0.1:4333"})

	require.NoError(t, err)

	assert.True(t, c.EmbeddedNats.Enabled)
	assert.Equal(t, "nats://127.0.0.1:4333", c.Source.NATS.Servers)
}
