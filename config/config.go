package config

import (
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joomcode/errorx"

	"github.com/riemann-bridge/statsd-riemann/enats"
	"github.com/riemann-bridge/statsd-riemann/metrics"
	"github.com/riemann-bridge/statsd-riemann/packet"
	"github.com/riemann-bridge/statsd-riemann/riemann"
	"github.com/riemann-bridge/statsd-riemann/server"
	"github.com/riemann-bridge/statsd-riemann/source"
)

// Config contains main application configuration
type Config struct {
	Riemann riemann.Config `toml:"riemann"`
	Events  packet.Config  `toml:"events"`
	Source  source.Config  `toml:"source"`
	Metrics metrics.Config `toml:"metrics"`
	HTTP    server.Config  `toml:"http"`

	EmbeddedNats enats.Config `toml:"embedded_nats"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Debug     bool   `toml:"debug"`

	UserPresets []string `toml:"presets"`

	// Path to the TOML file the config has been loaded from (if any)
	ConfigFilePath string `toml:"-"`
}

// NewConfig returns a new config with defaults
func NewConfig() Config {
	return Config{
		Riemann:      riemann.NewConfig(),
		Events:       packet.NewConfig(),
		Source:       source.NewConfig(),
		Metrics:      metrics.NewConfig(),
		HTTP:         server.NewConfig(),
		EmbeddedNats: enats.NewConfig(),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// LoadFile merges the TOML file contents into the config.
// Keys missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return errorx.Decorate(err, "failed to load config file %s", path)
	}

	c.ConfigFilePath = path

	return nil
}

// Validate checks the options required to start
func (c *Config) Validate() error {
	if err := c.Riemann.Validate(); err != nil {
		return err
	}

	if err := c.Source.Validate(); err != nil {
		return err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return errorx.IllegalArgument.New("unknown log format: %s. Available formats are: text, json", c.LogFormat)
	}

	if c.Metrics.HTTPEnabled() && !c.HTTP.Enabled() {
		return errorx.IllegalArgument.New("metrics HTTP path requires an HTTP port to be set")
	}

	return nil
}

// ToToml returns the TOML representation of the config.
// HTTP and metrics sections are annotated with comments.
func (c Config) ToToml() (string, error) {
	var result strings.Builder

	general := struct {
		LogLevel    string   `toml:"log_level"`
		LogFormat   string   `toml:"log_format"`
		Debug       bool     `toml:"debug"`
		UserPresets []string `toml:"presets"`
	}{c.LogLevel, c.LogFormat, c.Debug, c.UserPresets}

	sections := []interface{}{
		general,
		map[string]interface{}{"riemann": c.Riemann},
		map[string]interface{}{"events": c.Events},
		map[string]interface{}{"source": c.Source},
		map[string]interface{}{"embedded_nats": c.EmbeddedNats},
	}

	for _, section := range sections {
		if err := encodeToml(&result, section); err != nil {
			return "", err
		}

		result.WriteString("\n")
	}

	result.WriteString("[http]\n")
	result.WriteString(c.HTTP.ToToml())

	result.WriteString("[metrics]\n")
	result.WriteString(c.Metrics.ToToml())

	result.WriteString("[metrics.statsd]\n")

	if err := encodeToml(&result, c.Metrics.Statsd); err != nil {
		return "", err
	}

	return result.String(), nil
}

func encodeToml(w io.Writer, v interface{}) error {
	if err := toml.NewEncoder(w).Encode(v); err != nil {
		return errorx.Decorate(err, "failed to encode config")
	}

	return nil
}
