package metrics

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsdWriter(t *testing.T) {
	m := NewMetrics(nil, 0)

	m.RegisterCounter("events_sent_total", "")
	m.RegisterGauge("riemann_connection_open", "")

	for i := 0; i < 10; i++ {
		m.Counter("events_sent_total").Inc()
	}

	m.rotate()
	m.Gauge("riemann_connection_open").Set(1)

	socket, received := startServer(t)
	defer socket.Close()

	t.Run("Write sends UDP with metrics", func(t *testing.T) {
		c := NewStatsdConfig()
		c.Host = socket.LocalAddr().String()
		w := NewStatsdWriter(c, nil)
		require.NoError(t, w.Run(0))
		defer w.Stop()

		err := w.Write(m)
		assert.NoError(t, err)

		payload := receive(t, received)

		assert.Contains(t, payload, "statsd_riemann.events_sent_total:10|c")
		assert.Contains(t, payload, "statsd_riemann.riemann_connection_open:1|g")
	})

	t.Run("Write uses custom prefix", func(t *testing.T) {
		c := NewStatsdConfig()
		c.Host = socket.LocalAddr().String()
		c.Prefix = "bridge."
		w := NewStatsdWriter(c, nil)
		require.NoError(t, w.Run(0))
		defer w.Stop()

		err := w.Write(m)
		assert.NoError(t, err)

		payload := receive(t, received)

		assert.Contains(t, payload, "bridge.events_sent_total:10|c")
		assert.Contains(t, payload, "bridge.riemann_connection_open:1|g")
	})

	t.Run("Unknown tags format", func(t *testing.T) {
		c := NewStatsdConfig()
		c.Host = socket.LocalAddr().String()
		c.TagFormat = "unknown"
		w := NewStatsdWriter(c, map[string]string{"env": "test"})

		assert.Error(t, w.Run(0))
	})

	t.Run("Write after stop is a no-op", func(t *testing.T) {
		c := NewStatsdConfig()
		c.Host = socket.LocalAddr().String()
		w := NewStatsdWriter(c, nil)
		require.NoError(t, w.Run(0))
		w.Stop()

		assert.NoError(t, w.Write(m))
	})
}

func receive(t *testing.T, received chan []byte) string {
	select {
	case buf := <-received:
		return string(buf)
	case <-time.After(time.Second):
		t.Error("timeout waiting for UDP payload")
		return ""
	}
}

func startServer(t *testing.T) (*net.UDPConn, chan []byte) {
	inSocket, err := net.ListenUDP("udp4", &net.UDPAddr{
		IP: net.IPv4(127, 0, 0, 1),
	})
	require.NoError(t, err)

	received := make(chan []byte, 1024)

	go func() {
		for {
			buf := make([]byte, 1500)

			n, err := inSocket.Read(buf)
			if err != nil {
				return
			}

			received <- buf[0:n]
		}
	}()

	return inSocket, received
}
