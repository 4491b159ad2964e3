// Package dispatcher routes incoming packets to the event sink.
package dispatcher

import (
	"net"

	"github.com/apex/log"
	"github.com/riemann-bridge/statsd-riemann/metrics"
	"github.com/riemann-bridge/statsd-riemann/packet"
)

const (
	metricsPackets       = "packets_received_total"
	metricsPacketsFailed = "packets_failed_total"
	metricsEvents        = "events_received_total"
	metricsMalformed     = "events_malformed_total"
)

// Sender delivers events; it must not report errors back
type Sender interface {
	Send(ev *packet.Event)
}

// Dispatcher turns packets into events and passes them to the sender
// one by one, in the order they appear in the packet
type Dispatcher struct {
	parser  *packet.Parser
	sender  Sender
	metrics metrics.Instrumenter
	log     *log.Entry
}

// NewDispatcher builds a new Dispatcher
func NewDispatcher(parser *packet.Parser, sender Sender, m metrics.Instrumenter) *Dispatcher {
	m.RegisterCounter(metricsPackets, "The total number of received packets")
	m.RegisterCounter(metricsPacketsFailed, "The total number of packets failed to process")
	m.RegisterCounter(metricsEvents, "The total number of received event-strings")
	m.RegisterCounter(metricsMalformed, "The total number of dropped malformed event-strings")

	return &Dispatcher{
		parser:  parser,
		sender:  sender,
		metrics: m,
		log:     log.WithField("context", "dispatcher"),
	}
}

// HandlePacket processes a single packet. It never panics.
func (d *Dispatcher) HandlePacket(data []byte, remote net.Addr) {
	d.metrics.CounterIncrement(metricsPackets)

	defer func() {
		if r := recover(); r != nil {
			d.metrics.CounterIncrement(metricsPacketsFailed)
			d.log.WithField("remote", remoteString(remote)).Errorf("Failed to process packet: %v", r)
		}
	}()

	for _, str := range packet.Split(data) {
		if str == "" {
			continue
		}

		d.metrics.CounterIncrement(metricsEvents)

		ev, err := d.parser.Parse(str)

		if err != nil {
			d.metrics.CounterIncrement(metricsMalformed)
			d.log.WithField("remote", remoteString(remote)).Debugf("Skip malformed event: %v", err)
			continue
		}

		d.sender.Send(ev)
	}
}

func remoteString(addr net.Addr) string {
	if addr == nil {
		return "-"
	}

	return addr.String()
}
