// Package source contains packet emitters the bridge subscribes to.
//
// Every source is built with its handler, so a handler is subscribed
// exactly once for the lifetime of a source.
package source

import (
	"context"
	"net"

	"github.com/joomcode/errorx"
)

const (
	AdapterUDP   = "udp"
	AdapterNATS  = "nats"
	AdapterRedis = "redis"
)

// Handler receives raw packets
type Handler interface {
	HandlePacket(data []byte, remote net.Addr)
}

// HandlerFunc is a Handler adapter for functions
type HandlerFunc func(data []byte, remote net.Addr)

func (f HandlerFunc) HandlePacket(data []byte, remote net.Addr) {
	f(data, remote)
}

// Source emits packets to its handler.
// Start must not block; fatal errors after start are sent to done.
type Source interface {
	Start(done chan error) error
	Shutdown(ctx context.Context) error
}

// Config contains packet source settings
type Config struct {
	Adapter string      `toml:"adapter"`
	UDP     UDPConfig   `toml:"udp"`
	NATS    NATSConfig  `toml:"nats"`
	Redis   RedisConfig `toml:"redis"`
}

// NewConfig builds a new config with defaults
func NewConfig() Config {
	return Config{
		Adapter: AdapterUDP,
		UDP:     NewUDPConfig(),
		NATS:    NewNATSConfig(),
		Redis:   NewRedisConfig(),
	}
}

// Validate checks the adapter name and its settings
func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterUDP:
		return c.UDP.Validate()
	case AdapterNATS, AdapterRedis:
		return nil
	}

	return errorx.IllegalArgument.New("unknown packet source: %s. Available sources are: udp, nats, redis", c.Adapter)
}

// New builds a source for the configured adapter
func New(h Handler, c *Config) (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Adapter {
	case AdapterNATS:
		return NewNATSSource(h, &c.NATS), nil
	case AdapterRedis:
		return NewRedisSource(h, &c.Redis), nil
	default:
		return NewUDPSource(h, &c.UDP), nil
	}
}
