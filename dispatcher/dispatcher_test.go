package dispatcher

import (
	"net"
	"testing"

	"github.com/riemann-bridge/statsd-riemann/metrics"
	"github.com/riemann-bridge/statsd-riemann/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (s *MockSender) Send(ev *packet.Event) {
	s.Called(ev)
}

var remote = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 34567}

func withService(name string) interface{} {
	return mock.MatchedBy(func(ev *packet.Event) bool { return ev.Service == name })
}

func TestHandlePacket_Order(t *testing.T) {
	sender := &MockSender{}
	m := metrics.NewMetrics(nil, 0)
	d := NewDispatcher(packet.NewParser(&packet.Config{}), sender, m)

	var order []string

	sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, args.Get(0).(*packet.Event).Service)
	})

	d.HandlePacket([]byte("a:1|c\nb:2|c"), remote)

	assert.Equal(t, []string{"a", "b"}, order)
	sender.AssertNumberOfCalls(t, "Send", 2)

	assert.Equal(t, uint64(1), m.Counter(metricsPackets).Value())
	assert.Equal(t, uint64(2), m.Counter(metricsEvents).Value())
}

func TestHandlePacket_EventFields(t *testing.T) {
	sender := &MockSender{}
	d := NewDispatcher(
		packet.NewParser(&packet.Config{ParseNamespace: true, TagWithEventParts: true, Tags: []string{"prod"}, TTL: 10}),
		sender,
		metrics.NoopMetrics{},
	)

	sender.On("Send", &packet.Event{
		Service:     "app",
		State:       "ok",
		Description: "db.latency",
		Tags:        []string{"prod", "app", "db", "latency"},
		Metric:      "42",
		TTL:         10,
	}).Once()

	d.HandlePacket([]byte("app.db.latency:42|ms\n"), remote)

	sender.AssertExpectations(t)
}

func TestHandlePacket_SkipsEmptyAndMalformed(t *testing.T) {
	sender := &MockSender{}
	m := metrics.NewMetrics(nil, 0)
	d := NewDispatcher(packet.NewParser(&packet.Config{}), sender, m)

	sender.On("Send", withService("a")).Once()
	sender.On("Send", withService("c")).Once()

	d.HandlePacket([]byte("a:1|c\n\ngarbage\nc:3|c"), nil)

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 2)

	assert.Equal(t, uint64(3), m.Counter(metricsEvents).Value())
	assert.Equal(t, uint64(1), m.Counter(metricsMalformed).Value())
}

func TestHandlePacket_EmptyPacket(t *testing.T) {
	sender := &MockSender{}
	d := NewDispatcher(packet.NewParser(&packet.Config{}), sender, metrics.NoopMetrics{})

	d.HandlePacket([]byte{}, remote)
	d.HandlePacket([]byte("\n\n"), remote)

	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestHandlePacket_RecoversFromPanic(t *testing.T) {
	sender := &MockSender{}
	m := metrics.NewMetrics(nil, 0)
	d := NewDispatcher(packet.NewParser(&packet.Config{}), sender, m)

	sender.On("Send", mock.Anything).Panic("sender is broken")

	assert.NotPanics(t, func() {
		d.HandlePacket([]byte("a:1|c"), remote)
	})

	assert.Equal(t, uint64(1), m.Counter(metricsPacketsFailed).Value())
}
