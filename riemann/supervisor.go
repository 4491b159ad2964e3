package riemann

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/riemann-bridge/statsd-riemann/metrics"
)

const (
	metricsConnections    = "riemann_connections_total"
	metricsConnectionOpen = "riemann_connection_open"
)

// Supervisor owns the Riemann connection handle.
//
// With the datagram transport the handle is created once at start.
// With the stream transport the handle is checked every ReconnectInterval
// and replaced when it is missing or closed.
type Supervisor struct {
	config  *Config
	dial    Dialer
	metrics metrics.Instrumenter

	mu      sync.RWMutex
	conn    Conn
	stopped bool

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	log *log.Entry
}

// NewSupervisor builds a supervisor using the default Dialer
func NewSupervisor(c *Config, m metrics.Instrumenter) *Supervisor {
	return NewSupervisorWithDialer(c, m, Dial)
}

// NewSupervisorWithDialer builds a supervisor with a custom Dialer
func NewSupervisorWithDialer(c *Config, m metrics.Instrumenter, dial Dialer) *Supervisor {
	m.RegisterCounter(metricsConnections, "The total number of Riemann connections created")
	m.RegisterGauge(metricsConnectionOpen, "Whether the current Riemann connection is open (0 or 1)")

	return &Supervisor{
		config:     c,
		dial:       dial,
		metrics:    m,
		shutdownCh: make(chan struct{}),
		log:        log.WithFields(log.Fields{"context": "riemann", "transport": c.Transport}),
	}
}

// Start creates the connection (datagram) or starts liveness checks (stream)
func (s *Supervisor) Start() {
	if !s.config.Stream() {
		s.log.Infof("Sending events to Riemann at %s", s.config.Addr())

		s.mu.Lock()
		conn := s.connect()
		s.mu.Unlock()

		conn.Open()
		return
	}

	s.log.Infof(
		"Sending events to Riemann at %s (check connection every %dms)",
		s.config.Addr(), s.config.ReconnectInterval,
	)

	s.Tick()

	go s.checkLoop()
}

// Tick performs a single liveness check: a missing or closed connection
// is replaced with a new one, an open (or connecting) one is left untouched
func (s *Supervisor) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.conn == nil {
		s.log.Debug("Connecting to Riemann")
	} else if s.conn.Closed() {
		s.log.WithField("conn", s.conn.ID()).Debug("Riemann socket seems to be closed, reconnecting")
		s.metrics.GaugeSet(metricsConnectionOpen, 0)
		s.conn.Close() // nolint:errcheck
	} else {
		return
	}

	conn := s.connect()

	go conn.Open()
}

// Conn returns the current connection handle (could be nil)
func (s *Supervisor) Conn() Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conn
}

// Shutdown stops liveness checks and closes the connection
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.metrics.GaugeSet(metricsConnectionOpen, 0)

	if s.conn == nil {
		return nil
	}

	s.log.Debug("Closing Riemann connection")

	return s.conn.Close()
}

func (s *Supervisor) checkLoop() {
	ticker := time.NewTicker(s.config.reconnectEvery())
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// connect must be called with the lock held
func (s *Supervisor) connect() Conn {
	conn := s.dial(s.config, s.observer())
	s.conn = conn
	s.metrics.CounterIncrement(metricsConnections)

	return conn
}

func (s *Supervisor) observer() Observer {
	return Observer{
		OnConnect: func(id string) {
			s.metrics.GaugeSet(metricsConnectionOpen, 1)

			if s.config.Debug {
				s.log.WithField("conn", id).Debug("Connected to Riemann")
			}
		},
		OnError: func(id string, err error) {
			s.log.WithField("conn", id).Errorf("Socket error: %v", err)
		},
		OnAck: func(id string) {
			if s.config.Debug {
				s.log.WithField("conn", id).Debug("Received ACK")
			}
		},
	}
}
