package source

import (
	"context"
	"net"
	"sync"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
)

// UDPConfig contains UDP listener settings
type UDPConfig struct {
	Addr          string `toml:"addr"`
	MaxPacketSize int    `toml:"max_packet_size"`
}

// NewUDPConfig builds a new config with defaults
func NewUDPConfig() UDPConfig {
	return UDPConfig{Addr: ":8125", MaxPacketSize: maxDatagramSize}
}

const maxDatagramSize = 65535

// Validate checks the read buffer size fits a datagram
func (c *UDPConfig) Validate() error {
	if c.MaxPacketSize < 1 || c.MaxPacketSize > maxDatagramSize {
		return errorx.IllegalArgument.New("max packet size must be within 1..%d, got %d", maxDatagramSize, c.MaxPacketSize)
	}

	return nil
}

// UDPSource reads statsd datagrams from a UDP socket
type UDPSource struct {
	handler Handler
	config  *UDPConfig

	mu       sync.Mutex
	conn     *net.UDPConn
	shutdown bool

	log *log.Entry
}

var _ Source = (*UDPSource)(nil)

// NewUDPSource builds a new UDPSource
func NewUDPSource(h Handler, c *UDPConfig) *UDPSource {
	return &UDPSource{
		handler: h,
		config:  c,
		log:     log.WithFields(log.Fields{"context": "source", "provider": "udp"}),
	}
}

func (s *UDPSource) Start(done chan error) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	addr, err := net.ResolveUDPAddr("udp", s.config.Addr)

	if err != nil {
		return errorx.Decorate(err, "invalid UDP address: %s", s.config.Addr)
	}

	conn, err := net.ListenUDP("udp", addr)

	if err != nil {
		return errorx.Decorate(err, "failed to listen on %s", s.config.Addr)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.log.Infof("Listening for statsd packets at %s", conn.LocalAddr())

	go s.listen(conn, done)

	return nil
}

// Addr returns the address the socket is bound to (nil before start)
func (s *UDPSource) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

func (s *UDPSource) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown || s.conn == nil {
		return nil
	}

	s.shutdown = true

	return s.conn.Close()
}

func (s *UDPSource) listen(conn *net.UDPConn, done chan error) {
	buf := make([]byte, s.config.MaxPacketSize)

	for {
		n, remote, err := conn.ReadFromUDP(buf)

		if err != nil {
			if s.isShutdown() {
				return
			}

			s.log.Errorf("Failed to read from socket: %v", err)

			select {
			case done <- errorx.Decorate(err, "UDP source failed"):
			default:
			}

			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.log.Debugf("Incoming packet from %s (%d bytes)", remote, n)

		s.handler.HandlePacket(data, remote)
	}
}

func (s *UDPSource) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shutdown
}
