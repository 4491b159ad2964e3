//go:build !freebsd || amd64
// +build !freebsd amd64

// Package enats runs a NATS server in-process, so statsd clients
// can publish packets without an external NATS deployment.
package enats

import (
	"net/url"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	serverStartTimeout = 5 * time.Second
)

// Service represents NATS service
type Service struct {
	config *Config
	server *server.Server
}

// LogEntry represents LoggerV2 decorator for nats server logger
type LogEntry struct {
	*log.Entry
}

// Noticef is an alias for Infof
func (e *LogEntry) Noticef(format string, v ...interface{}) {
	e.Infof(format, v...)
}

// Tracef is an alias for Debugf
func (e *LogEntry) Tracef(format string, v ...interface{}) {
	e.Debugf(format, v...)
}

// NewConfig returns defaults for the embedded NATS server
func NewConfig() Config {
	return Config{
		ServiceAddr: nats.DefaultURL,
	}
}

// NewService returns an instance of NATS service
func NewService(c *Config) *Service {
	return &Service{config: c}
}

// Start starts the server and waits until it accepts connections
func (s *Service) Start() error {
	host, port, err := parseAddress(s.config.ServiceAddr)
	if err != nil {
		return errorx.Decorate(err, "Error parsing NATS service addr")
	}

	opts := &server.Options{
		Host:   host,
		Port:   port,
		Debug:  s.config.Debug,
		Trace:  s.config.Trace,
		NoSigs: true,
		NoLog:  !s.config.Debug,
	}

	s.server, err = server.NewServer(opts)
	if err != nil {
		return errorx.Decorate(err, "Failed to start NATS server")
	}

	if s.config.Debug {
		e := &LogEntry{log.WithField("context", "enats")}
		s.server.SetLogger(e, s.config.Debug, s.config.Trace)
	}

	go s.server.Start()

	return s.WaitReady()
}

// WaitReady waits while NATS server is starting
func (s *Service) WaitReady() error {
	if s.server.ReadyForConnections(serverStartTimeout) {
		return nil
	}

	return errorx.TimeoutElapsed.New(
		"Failed to start NATS server within %s", serverStartTimeout,
	)
}

// ClientURL returns the URL clients must connect to
func (s *Service) ClientURL() string {
	if s.server == nil {
		return s.config.ServiceAddr
	}

	return s.server.ClientURL()
}

// Description returns a human-readable server summary
func (s *Service) Description() string {
	return "embedded NATS at " + s.ClientURL()
}

// Shutdown shuts the NATS server down
func (s *Service) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.server.Shutdown()
	s.server.WaitForShutdown()
	return nil
}

func parseAddress(addr string) (string, int, error) {
	var uri *url.URL

	uri, err := url.Parse(addr)
	if err != nil {
		return "", 0, errorx.Decorate(err, "Failed to parse URL")
	}

	if uri.Port() == "" {
		return "", 0, errorx.IllegalArgument.New("Port cannot be empty")
	}

	port, err := strconv.ParseInt(uri.Port(), 10, 32)
	if err != nil {
		return "", 0, errorx.Decorate(err, "Port is not valid")
	}

	return uri.Hostname(), int(port), nil
}
