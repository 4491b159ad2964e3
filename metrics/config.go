package metrics

import (
	"fmt"
	"strings"
)

// Config contains metrics configuration
type Config struct {
	Log            bool `toml:"log"`
	RotateInterval int  `toml:"rotate_interval"`
	// Print only specified metrics
	LogFilter []string          `toml:"log_filter"`
	HTTP      string            `toml:"http_path"`
	Tags      map[string]string `toml:"tags"`
	Statsd    StatsdConfig      `toml:"statsd"`
}

// NewConfig creates a Config struct with defaults
func NewConfig() Config {
	return Config{
		RotateInterval: 15,
		Statsd:         NewStatsdConfig(),
	}
}

// LogEnabled returns true iff metrics logging is on
func (c *Config) LogEnabled() bool {
	return c.Log
}

// HTTPEnabled returns true iff HTTP path is not empty
func (c *Config) HTTPEnabled() bool {
	return c.HTTP != ""
}

// ToToml converts the Config to a TOML string representation
func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Metrics HTTP endpoint path (Prometheus format, served by the HTTP server)\n")
	if c.HTTP != "" {
		result.WriteString(fmt.Sprintf("http_path = \"%s\"\n", c.HTTP))
	} else {
		result.WriteString("# http_path = \"/metrics\"\n")
	}

	result.WriteString("# Enable metrics logging\n")
	if c.Log {
		result.WriteString("log = true\n")
	} else {
		result.WriteString("# log = true\n")
	}

	result.WriteString("# Rotation interval (seconds)\n")
	result.WriteString(fmt.Sprintf("rotate_interval = %d\n", c.RotateInterval))

	result.WriteString("# Log filter (show only selected metrics)\n")
	if len(c.LogFilter) > 0 {
		result.WriteString(fmt.Sprintf("log_filter = [ \"%s\" ]\n", strings.Join(c.LogFilter, "\", \"")))
	} else {
		result.WriteString("# log_filter = []\n")
	}

	result.WriteString("# Metrics tags\n")
	if len(c.Tags) > 0 {
		for key, value := range c.Tags {
			result.WriteString(fmt.Sprintf("tags.%s = \"%s\"\n", key, value))
		}
	} else {
		result.WriteString("# tags.key = \"value\"\n")
	}

	result.WriteString("\n")

	return result.String()
}
