package cli

import (
	"github.com/joomcode/errorx"

	"github.com/riemann-bridge/statsd-riemann/config"
	"github.com/riemann-bridge/statsd-riemann/riemann"
	"github.com/riemann-bridge/statsd-riemann/source"
)

// Option represents a Runner configuration function
type Option func(*Runner) error

type sourceFactory = func(source.Handler, *config.Config) (source.Source, error)

// WithName is an Option to set Runner name
func WithName(name string) Option {
	return func(r *Runner) error {
		r.name = name
		return nil
	}
}

// WithSource is an Option to set Runner packet source
func WithSource(fn sourceFactory) Option {
	return func(r *Runner) error {
		if r.sourceFactory != nil {
			return errorx.IllegalArgument.New("Source has been already assigned")
		}
		r.sourceFactory = fn
		return nil
	}
}

// WithDefaultSource is an Option to set Runner source to the one from config
func WithDefaultSource() Option {
	return WithSource(func(h source.Handler, c *config.Config) (source.Source, error) {
		return source.New(h, &c.Source)
	})
}

// WithDialer is an Option to set a custom Riemann connection dialer
func WithDialer(dial riemann.Dialer) Option {
	return func(r *Runner) error {
		r.dialer = dial
		return nil
	}
}

// WithShutdownable adds a new shutdownable instance to be shutdown at server stop
func WithShutdownable(instance Shutdownable) Option {
	return func(r *Runner) error {
		r.shutdownables = append(r.shutdownables, instance)
		return nil
	}
}
