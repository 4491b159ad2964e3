package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joomcode/errorx"
)

// HTTPServer is wrapper over http.Server
type HTTPServer struct {
	server  *http.Server
	router  chi.Router
	addr    string
	secured bool

	mu       sync.Mutex
	listener net.Listener
	shutdown bool

	log *log.Entry
}

// NewServer builds HTTPServer from config params
func NewServer(c *Config) (*HTTPServer, error) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	secured := c.SSL.Available()

	if secured {
		cer, err := tls.LoadX509KeyPair(c.SSL.CertPath, c.SSL.KeyPath)
		if err != nil {
			return nil, errorx.Decorate(err, "failed to load SSL certificate")
		}

		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cer}, MinVersion: tls.VersionTLS12}
	}

	s := &HTTPServer{
		server:  server,
		router:  router,
		addr:    addr,
		secured: secured,
		log:     log.WithField("context", "http"),
	}

	router.Get(c.HealthPath, s.HealthHandler)

	return s, nil
}

// Handle registers a GET handler for the path
func (s *HTTPServer) Handle(path string, handler http.HandlerFunc) {
	s.router.Get(path, handler)
}

// Start binds the listener and serves requests until shutdown
func (s *HTTPServer) Start() error {
	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)

	if err != nil {
		s.mu.Unlock()
		return errorx.Decorate(err, "failed to listen on %s", s.addr)
	}

	s.listener = ln
	s.mu.Unlock()

	s.log.Infof("Handle HTTP requests at %s://%s", s.scheme(), ln.Addr())

	if s.secured {
		err = s.server.ServeTLS(ln, "", "")
	} else {
		err = s.server.Serve(ln)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Address returns the bound address (or the configured one before start)
func (s *HTTPServer) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.addr
}

// Shutdown stops the server gracefully
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()
		return nil
	}

	s.shutdown = true
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) scheme() string {
	if s.secured {
		return "https"
	}

	return "http"
}
