package source

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gomodule/redigo/redis"
	"github.com/joomcode/errorx"

	"github.com/riemann-bridge/statsd-riemann/utils"
)

// RedisConfig contains Redis Pub/Sub settings
type RedisConfig struct {
	URL                   string `toml:"url"`
	Channel               string `toml:"channel"`
	KeepalivePingInterval int    `toml:"keepalive_ping_interval"`
	MaxReconnectAttempts  int    `toml:"max_reconnect_attempts"`
}

// NewRedisConfig builds a new config with defaults
func NewRedisConfig() RedisConfig {
	return RedisConfig{
		URL:                   "redis://localhost:6379/5",
		Channel:               "statsd",
		KeepalivePingInterval: 30,
		MaxReconnectAttempts:  5,
	}
}

// RedisSource receives packets published to a Redis channel
type RedisSource struct {
	handler Handler
	config  *RedisConfig

	reconnectAttempt int

	mu         sync.Mutex
	conn       redis.Conn
	shutdownCh chan struct{}

	log *log.Entry
}

var _ Source = (*RedisSource)(nil)

// NewRedisSource builds a new RedisSource
func NewRedisSource(h Handler, c *RedisConfig) *RedisSource {
	return &RedisSource{
		handler:    h,
		config:     c,
		shutdownCh: make(chan struct{}),
		log:        log.WithFields(log.Fields{"context": "source", "provider": "redis"}),
	}
}

// Start validates the URL and runs the subscription loop in background
func (s *RedisSource) Start(done chan error) error {
	if _, err := url.Parse(s.config.URL); err != nil {
		return errorx.Decorate(err, "invalid Redis URL")
	}

	go s.keepalive(done)

	return nil
}

func (s *RedisSource) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.shutdownCh:
		return nil
	default:
	}

	close(s.shutdownCh)

	if s.conn != nil {
		return s.conn.Close()
	}

	return nil
}

func (s *RedisSource) keepalive(done chan error) {
	for {
		if err := s.listen(); err != nil && !s.isShutdown() {
			s.log.Warnf("Redis connection failed: %v", err)
		}

		if s.isShutdown() {
			return
		}

		s.reconnectAttempt++

		if s.reconnectAttempt >= s.config.MaxReconnectAttempts {
			select {
			case done <- errorx.IllegalState.New("Redis reconnect attempts exceeded"):
			default:
			}
			return
		}

		delay := utils.NextRetry(s.reconnectAttempt)

		s.log.Infof("Next Redis reconnect attempt in %s", delay)

		select {
		case <-s.shutdownCh:
			return
		case <-time.After(delay):
		}

		s.log.Info("Reconnecting to Redis...")
	}
}

func (s *RedisSource) listen() error {
	c, err := redis.DialURL(s.config.URL)

	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.isShutdownLocked() {
		s.mu.Unlock()
		c.Close()
		return nil
	}
	s.conn = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		c.Close()
	}()

	psc := redis.PubSubConn{Conn: c}
	if err = psc.Subscribe(s.config.Channel); err != nil {
		s.log.Errorf("Failed to subscribe to Redis channel: %v", err)
		return err
	}

	s.reconnectAttempt = 0

	done := make(chan error, 1)

	go func() {
		for {
			switch v := psc.Receive().(type) {
			case redis.Message:
				s.log.Debugf("Incoming packet: %s", v.Data)
				s.handler.HandlePacket(v.Data, nil)
			case redis.Subscription:
				s.log.Infof("Subscribed to Redis channel: %s", v.Channel)
			case error:
				done <- v
				return
			}
		}
	}()

	pingInterval := s.config.KeepalivePingInterval
	if pingInterval <= 0 {
		pingInterval = 30
	}

	ticker := time.NewTicker(time.Duration(pingInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err = psc.Ping(""); err != nil {
				psc.Unsubscribe() // nolint:errcheck
				return <-done
			}
		case err := <-done:
			return err
		}
	}
}

func (s *RedisSource) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isShutdownLocked()
}

func (s *RedisSource) isShutdownLocked() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}
