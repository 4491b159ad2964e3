package riemann

import (
	"net"
	"strconv"
	"time"

	"github.com/joomcode/errorx"
)

const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

// Config contains Riemann connection settings
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// "tcp" means stream transport, anything else is datagram
	Transport string `toml:"transport"`
	// Liveness check interval in milliseconds (stream transport only)
	ReconnectInterval int `toml:"reconnect_interval"`
	// Connect and write timeout in milliseconds
	ConnectTimeout int  `toml:"connect_timeout"`
	Debug          bool `toml:"debug"`
}

// NewConfig builds a new config with defaults
func NewConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              5555,
		Transport:         TransportUDP,
		ReconnectInterval: 1000,
		ConnectTimeout:    5000,
	}
}

// Stream returns true when the stream (TCP) transport is used
func (c *Config) Stream() bool {
	return c.Transport == TransportTCP
}

// Addr returns Riemann server address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) reconnectEvery() time.Duration {
	return time.Duration(c.ReconnectInterval) * time.Millisecond
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

// Validate checks that the required options are present
func (c *Config) Validate() error {
	if c.Host == "" {
		return errorx.IllegalArgument.New("riemann host is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return errorx.IllegalArgument.New("riemann port must be in 1..65535, got %d", c.Port)
	}

	if c.Stream() && c.ReconnectInterval <= 0 {
		return errorx.IllegalArgument.New("riemann reconnect interval is required for tcp transport")
	}

	return nil
}
