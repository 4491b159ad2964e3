package source

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
	"github.com/nats-io/nats.go"
)

// NATSConfig contains NATS subscription settings
type NATSConfig struct {
	Servers              string `toml:"servers"`
	Subject              string `toml:"subject"`
	DontRandomizeServers bool   `toml:"dont_randomize_servers"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts"`
}

// NewNATSConfig builds a new config with defaults
func NewNATSConfig() NATSConfig {
	return NATSConfig{Servers: nats.DefaultURL, Subject: "statsd", MaxReconnectAttempts: 5}
}

// NATSSource receives packets published to a NATS subject
type NATSSource struct {
	handler Handler
	config  *NATSConfig

	mu   sync.Mutex
	conn *nats.Conn

	log *log.Entry
}

var _ Source = (*NATSSource)(nil)

// NewNATSSource builds a new NATSSource
func NewNATSSource(h Handler, c *NATSConfig) *NATSSource {
	return &NATSSource{
		handler: h,
		config:  c,
		log:     log.WithFields(log.Fields{"context": "source", "provider": "nats"}),
	}
}

func (s *NATSSource) Start(done chan error) error {
	connectOptions := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(s.config.MaxReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				s.log.Warnf("Connection failed: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.log.Infof("Connection restored: %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if err := nc.LastError(); err != nil {
				select {
				case done <- errorx.Decorate(err, "NATS connection closed"):
				default:
				}
			}
		}),
	}

	if s.config.DontRandomizeServers {
		connectOptions = append(connectOptions, nats.DontRandomize())
	}

	nc, err := nats.Connect(s.config.Servers, connectOptions...)

	if err != nil {
		return errorx.Decorate(err, "failed to connect to NATS")
	}

	_, err = nc.Subscribe(s.config.Subject, func(m *nats.Msg) {
		s.log.Debugf("Incoming packet: %s", m.Data)
		s.handler.HandlePacket(m.Data, nil)
	})

	if err != nil {
		nc.Close()
		return errorx.Decorate(err, "failed to subscribe to %s", s.config.Subject)
	}

	// Make sure the subscription is registered before reporting readiness
	if nc.IsConnected() {
		if err := nc.Flush(); err != nil {
			s.log.Warnf("Failed to flush subscription: %v", err)
		}
	}

	s.log.Infof("Subscribing for packets to subject: %s", s.config.Subject)

	s.mu.Lock()
	s.conn = nc
	s.mu.Unlock()

	return nil
}

func (s *NATSSource) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	return nil
}
