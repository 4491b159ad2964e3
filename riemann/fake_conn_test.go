package riemann

import (
	"fmt"
	"sync"

	riemanngo "github.com/riemann/riemann-go-client"
)

type fakeConn struct {
	id  string
	obs Observer

	mu      sync.Mutex
	opened  bool
	closed  bool
	sent    []*riemanngo.Event
	sendErr error
	panics  bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Open() {
	c.mu.Lock()
	c.opened = true
	c.mu.Unlock()

	if c.obs.OnConnect != nil {
		c.obs.OnConnect(c.id)
	}
}

func (c *fakeConn) Send(e *riemanngo.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.panics {
		panic("boom")
	}

	if c.sendErr != nil {
		return c.sendErr
	}

	c.sent = append(c.sent, e)
	return nil
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *fakeConn) Sent() []*riemanngo.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sent
}

func (c *fakeConn) IsOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opened
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(c *Config, obs Observer) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn := &fakeConn{id: fmt.Sprintf("conn-%d", len(d.conns)+1), obs: obs}
	d.conns = append(d.conns, conn)

	return conn
}

func (d *fakeDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.conns)
}

type staticProvider struct {
	conn Conn
}

func (p *staticProvider) Conn() Conn { return p.conn }
