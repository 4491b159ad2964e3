package riemann

import (
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
	"github.com/riemann-bridge/statsd-riemann/metrics"
	"github.com/riemann-bridge/statsd-riemann/packet"

	riemanngo "github.com/riemann/riemann-go-client"
)

const (
	metricsEventsSent   = "riemann_events_sent_total"
	metricsEventsFailed = "riemann_events_failed_total"
)

// ConnProvider gives access to the current connection handle
type ConnProvider interface {
	Conn() Conn
}

// Sink sends events to Riemann on a best-effort basis:
// failed events are dropped, Send never reports an error
type Sink struct {
	config  *Config
	conns   ConnProvider
	metrics metrics.Instrumenter
	log     *log.Entry
}

// NewSink builds a new Sink
func NewSink(c *Config, conns ConnProvider, m metrics.Instrumenter) *Sink {
	m.RegisterCounter(metricsEventsSent, "The total number of events sent to Riemann")
	m.RegisterCounter(metricsEventsFailed, "The total number of events dropped because of send failures")

	return &Sink{
		config:  c,
		conns:   conns,
		metrics: m,
		log:     log.WithFields(log.Fields{"context": "riemann", "transport": c.Transport}),
	}
}

// Send transmits the event through the current connection
func (s *Sink) Send(ev *packet.Event) {
	if err := s.send(ev); err != nil {
		s.metrics.CounterIncrement(metricsEventsFailed)

		if s.config.Debug {
			s.log.Debugf("Error while sending, ignoring error: %v", err)
		}

		return
	}

	s.metrics.CounterIncrement(metricsEventsSent)
}

func (s *Sink) send(ev *packet.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorx.InternalError.New("riemann client panicked: %v", r)
		}
	}()

	conn := s.conns.Conn()

	if conn == nil {
		return ErrNotConnected.New("no Riemann connection yet")
	}

	rev, err := NewEvent(ev)

	if err != nil {
		return err
	}

	return conn.Send(rev)
}

// NewEvent converts a parsed event into a Riemann event
func NewEvent(ev *packet.Event) (*riemanngo.Event, error) {
	metric, err := parseMetric(ev.Metric)

	if err != nil {
		return nil, err
	}

	return &riemanngo.Event{
		Service:     ev.Service,
		State:       ev.State,
		Description: ev.Description,
		Tags:        ev.Tags,
		Metric:      metric,
		TTL:         time.Duration(ev.TTL * float64(time.Second)),
	}, nil
}

// Riemann metrics are numeric; integers are kept as int64
func parseMetric(val string) (interface{}, error) {
	if i, err := strconv.ParseInt(val, 10, 64); err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(val, 64)

	if err != nil {
		return nil, ErrInvalidMetric.Wrap(err, "metric value %q is not a number", val)
	}

	return f, nil
}
