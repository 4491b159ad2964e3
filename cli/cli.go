package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
	"github.com/syossan27/tebata"

	"github.com/riemann-bridge/statsd-riemann/config"
	"github.com/riemann-bridge/statsd-riemann/dispatcher"
	"github.com/riemann-bridge/statsd-riemann/enats"
	"github.com/riemann-bridge/statsd-riemann/metrics"
	"github.com/riemann-bridge/statsd-riemann/packet"
	"github.com/riemann-bridge/statsd-riemann/riemann"
	"github.com/riemann-bridge/statsd-riemann/server"
	"github.com/riemann-bridge/statsd-riemann/source"
	"github.com/riemann-bridge/statsd-riemann/utils"
	"github.com/riemann-bridge/statsd-riemann/version"
)

const shutdownTimeout = 10 * time.Second

// Shutdownable is implemented by components stopped on shutdown
type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// Runner wires the packet source, dispatcher and Riemann sink together
// and controls their lifecycle
type Runner struct {
	name          string
	config        *config.Config
	sourceFactory sourceFactory
	dialer        riemann.Dialer
	shutdownables []Shutdownable

	metrics    *metrics.Metrics
	supervisor *riemann.Supervisor
	sink       *riemann.Sink
	dispatcher *dispatcher.Dispatcher
	source     source.Source
	httpServer *server.HTTPServer
	enats      *enats.Service

	errChan      chan error
	shutdownOnce sync.Once

	log *log.Entry
}

// NewRunner returns a new Runner structure
func NewRunner(c *config.Config, options []Option) (*Runner, error) {
	r := &Runner{
		name:          "statsd-riemann",
		config:        c,
		shutdownables: []Shutdownable{},
		errChan:       make(chan error, 1),
	}

	for _, option := range options {
		err := option(r)
		if err != nil {
			return nil, err
		}
	}

	if r.sourceFactory == nil {
		return nil, errorx.IllegalArgument.New("Source is not specified. Did you forget to provide an option?")
	}

	if err := utils.InitLogger(c.LogFormat, c.LogLevel); err != nil {
		return nil, errorx.Decorate(err, "failed to initialize logger")
	}

	r.log = log.WithField("context", "main")

	if err := c.LoadPresets(); err != nil {
		return nil, errorx.Decorate(err, "failed to load configuration presets")
	}

	if err := c.Validate(); err != nil {
		return nil, errorx.Decorate(err, "invalid configuration")
	}

	m, err := metrics.NewFromConfig(&c.Metrics)

	if err != nil {
		return nil, errorx.Decorate(err, "failed to initialize metrics writers")
	}

	r.metrics = m

	if c.EmbeddedNats.Enabled {
		r.enats = enats.NewService(&c.EmbeddedNats)
	}

	if r.dialer != nil {
		r.supervisor = riemann.NewSupervisorWithDialer(&c.Riemann, m, r.dialer)
	} else {
		r.supervisor = riemann.NewSupervisor(&c.Riemann, m)
	}

	r.sink = riemann.NewSink(&c.Riemann, r.supervisor, m)
	r.dispatcher = dispatcher.NewDispatcher(packet.NewParser(&c.Events), r.sink, m)

	src, err := r.sourceFactory(r.dispatcher, c)

	if err != nil {
		return nil, errorx.Decorate(err, "failed to initialize packet source")
	}

	r.source = src

	if c.HTTP.Enabled() {
		srv, err := server.NewServer(&c.HTTP)

		if err != nil {
			return nil, errorx.Decorate(err, "failed to initialize HTTP server")
		}

		if c.Metrics.HTTPEnabled() {
			srv.Handle(c.Metrics.HTTP, m.PrometheusHandler)
		}

		r.httpServer = srv
	}

	return r, nil
}

// Start launches all the components without blocking
func (r *Runner) Start() error {
	r.log.Infof("Starting %s %s (pid: %d)", r.name, version.Version(), os.Getpid())

	go r.runMetrics()

	if r.enats != nil {
		if err := r.enats.Start(); err != nil {
			return errorx.Decorate(err, "failed to start embedded NATS server")
		}

		r.log.Infof("Running %s", r.enats.Description())
	}

	r.supervisor.Start()

	if err := r.source.Start(r.errChan); err != nil {
		return errorx.Decorate(err, "failed to start packet source")
	}

	if r.httpServer != nil {
		go func() {
			if err := r.httpServer.Start(); err != nil {
				select {
				case r.errChan <- errorx.Decorate(err, "HTTP server failed"):
				default:
				}
			}
		}()
	}

	return nil
}

// Run starts the components and blocks until a fatal error occurs
// or the process is terminated
func (r *Runner) Run() error {
	if err := r.Start(); err != nil {
		return err
	}

	r.setupSignalHandlers()

	return <-r.errChan
}

// Shutdown stops the source first (so no new packets arrive),
// then Riemann connection, metrics and HTTP server
func (r *Runner) Shutdown(ctx context.Context) (err error) {
	r.shutdownOnce.Do(func() {
		r.log.Info("Shutting down...")

		if serr := r.source.Shutdown(ctx); serr != nil {
			r.log.Errorf("Failed to shutdown packet source: %v", serr)
			err = serr
		}

		if r.enats != nil {
			if serr := r.enats.Shutdown(); serr != nil {
				r.log.Errorf("Failed to shutdown embedded NATS server: %v", serr)
				err = serr
			}
		}

		if serr := r.supervisor.Shutdown(ctx); serr != nil {
			r.log.Errorf("Failed to close Riemann connection: %v", serr)
			err = serr
		}

		r.metrics.Shutdown()

		if r.httpServer != nil {
			if serr := r.httpServer.Shutdown(ctx); serr != nil {
				r.log.Errorf("Failed to shutdown HTTP server: %v", serr)
				err = serr
			}
		}

		for _, s := range r.shutdownables {
			if serr := s.Shutdown(ctx); serr != nil {
				r.log.Errorf("Failed to shutdown %T: %v", s, serr)
				err = serr
			}
		}
	})

	return
}

// Metrics returns the runner metrics registry
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// HTTPServer returns the HTTP server (nil when disabled)
func (r *Runner) HTTPServer() *server.HTTPServer {
	return r.httpServer
}

func (r *Runner) runMetrics() {
	if err := r.metrics.Run(); err != nil {
		r.log.Errorf("Metrics writers failed: %v", err)
	}
}

func (r *Runner) setupSignalHandlers() {
	s := tebata.New(syscall.SIGINT, syscall.SIGTERM)

	s.Reserve(func() { // nolint:errcheck
		r.log.Info("Termination requested (hit Ctrl-C to stop immediately)")

		go func() {
			termSig := make(chan os.Signal, 1)
			signal.Notify(termSig, syscall.SIGINT, syscall.SIGTERM)
			<-termSig
			r.log.Warn("Immediate termination requested. Stopped")
			os.Exit(0)
		}()
	})

	s.Reserve(func() { // nolint:errcheck
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		r.Shutdown(ctx) // nolint:errcheck
	})

	s.Reserve(os.Exit, 0) // nolint:errcheck
}
