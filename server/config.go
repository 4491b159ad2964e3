package server

import (
	"fmt"
	"strings"
)

// Config contains HTTP server settings.
// The server is disabled when Port is zero.
type Config struct {
	Host       string    `toml:"host"`
	Port       int       `toml:"port"`
	HealthPath string    `toml:"health_path"`
	SSL        SSLConfig `toml:"ssl"`
}

func NewConfig() Config {
	return Config{
		Host:       "localhost",
		HealthPath: "/health",
		SSL:        NewSSLConfig(),
	}
}

// Enabled returns true when the HTTP server must be started
func (c Config) Enabled() bool {
	return c.Port > 0
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Host address to bind to\n")
	result.WriteString(fmt.Sprintf("host = %q\n", c.Host))
	result.WriteString("# Port to listen on (0 disables the HTTP server)\n")
	result.WriteString(fmt.Sprintf("port = %d\n", c.Port))

	result.WriteString("# Health check endpoint path\n")
	result.WriteString(fmt.Sprintf("health_path = %q\n", c.HealthPath))

	result.WriteString("# SSL configuration\n")

	if c.SSL.CertPath != "" {
		result.WriteString(fmt.Sprintf("ssl.cert_path = %q\n", c.SSL.CertPath))
	} else {
		result.WriteString("# ssl.cert_path =\n")
	}

	if c.SSL.KeyPath != "" {
		result.WriteString(fmt.Sprintf("ssl.key_path = %q\n", c.SSL.KeyPath))
	} else {
		result.WriteString("# ssl.key_path =\n")
	}

	result.WriteString("\n")

	return result.String()
}
