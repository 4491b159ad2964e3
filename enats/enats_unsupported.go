//go:build freebsd && !amd64
// +build freebsd,!amd64

package enats

import (
	"github.com/joomcode/errorx"
)

// NewConfig returns defaults for the embedded NATS server
func NewConfig() Config {
	return Config{}
}

type Service struct {
	config *Config
}

func (Service) Description() string { return "" }
func (s Service) ClientURL() string  { return s.config.ServiceAddr }
func (Service) Start() error {
	return errorx.UnsupportedOperation.New("embedded NATS is not supported for the current platform")
}
func (Service) Shutdown() error { return nil }

func NewService(c *Config) *Service {
	return &Service{config: c}
}
