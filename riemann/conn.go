package riemann

import (
	"sync"

	"github.com/joomcode/errorx"
	nanoid "github.com/matoous/go-nanoid"
	riemanngo "github.com/riemann/riemann-go-client"
)

// Observer receives connection lifecycle notifications.
// OnConnect is called at most once per connection.
type Observer struct {
	OnConnect func(id string)
	OnError   func(id string, err error)
	OnAck     func(id string)
}

// Conn is a single Riemann connection handle
type Conn interface {
	ID() string
	// Open connects to the server; the outcome is reported to the observer
	Open()
	Send(e *riemanngo.Event) error
	Closed() bool
	Close() error
}

// Dialer builds a new connection handle (not opened yet)
type Dialer func(c *Config, obs Observer) Conn

type connState int

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

// Stream handles deliver events from a bounded backlog
const sendBacklogSize = 1024

type clientConn struct {
	id     string
	stream bool
	client riemanngo.Client
	obs    Observer

	openOnce sync.Once

	mu        sync.Mutex
	state     connState
	connected bool

	backlog   chan *riemanngo.Event
	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ Conn = (*clientConn)(nil)

// Dial is the default Dialer backed by riemann-go-client
func Dial(c *Config, obs Observer) Conn {
	var client riemanngo.Client

	if c.Stream() {
		client = riemanngo.NewTCPClient(c.Addr(), c.timeout())
	} else {
		client = riemanngo.NewUDPClient(c.Addr(), c.timeout())
	}

	return newClientConn(client, c.Stream(), obs)
}

func newClientConn(client riemanngo.Client, stream bool, obs Observer) *clientConn {
	id, _ := nanoid.Nanoid(8)

	c := &clientConn{
		id:      id,
		stream:  stream,
		client:  client,
		obs:     obs,
		state:   stateConnecting,
		closeCh: make(chan struct{}),
	}

	if stream {
		c.backlog = make(chan *riemanngo.Event, sendBacklogSize)
	}

	return c
}

func (c *clientConn) ID() string {
	return c.id
}

func (c *clientConn) Open() {
	c.openOnce.Do(c.open)
}

func (c *clientConn) open() {
	c.mu.Lock()
	if c.state != stateConnecting {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	err := c.client.Connect()

	c.mu.Lock()

	if err != nil {
		c.state = stateClosed
		c.mu.Unlock()
		c.stopDelivery()
		// The client request loop is started before dialing
		stopClient(c.client) // nolint:errcheck
		c.notifyError(err)
		return
	}

	// Closed while connecting
	if c.state == stateClosed {
		c.mu.Unlock()
		stopClient(c.client) // nolint:errcheck
		return
	}

	c.state = stateOpen
	c.connected = true
	c.mu.Unlock()

	if c.stream {
		go c.deliverLoop()
	}

	if c.obs.OnConnect != nil {
		c.obs.OnConnect(c.id)
	}
}

// Send never waits for the server: stream events are queued for the
// delivery loop, datagrams are written right away
func (c *clientConn) Send(e *riemanngo.Event) error {
	c.mu.Lock()
	open := c.state == stateOpen
	c.mu.Unlock()

	if !open {
		return ErrNotConnected.New("connection %s is not open", c.id)
	}

	if !c.stream {
		if err := c.deliver(e); err != nil {
			c.notifyError(err)
			return err
		}

		return nil
	}

	select {
	case <-c.closeCh:
		return ErrNotConnected.New("connection %s is not open", c.id)
	default:
	}

	select {
	case c.backlog <- e:
		return nil
	default:
		return ErrBacklogFull.New("connection %s has %d events pending", c.id, sendBacklogSize)
	}
}

func (c *clientConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state == stateClosed
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	c.state = stateClosed
	connected := c.connected
	c.connected = false
	c.mu.Unlock()

	c.stopDelivery()

	if !connected {
		return nil
	}

	return stopClient(c.client)
}

// deliverLoop sends queued events one by one and waits for acks
func (c *clientConn) deliverLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case e := <-c.backlog:
			if err := c.deliver(e); err != nil {
				c.fail(err)
				return
			}

			if c.obs.OnAck != nil {
				c.obs.OnAck(c.id)
			}
		}
	}
}

// A failed write or read leaves the stream in an unknown position,
// so the socket is considered closed
func (c *clientConn) fail(err error) {
	c.mu.Lock()
	wasOpen := c.state == stateOpen
	c.state = stateClosed
	connected := c.connected
	c.connected = false
	c.mu.Unlock()

	c.stopDelivery()

	if connected {
		stopClient(c.client) // nolint:errcheck
	}

	// Errors caused by Close are expected
	if wasOpen {
		c.notifyError(err)
	}
}

// The client panics when used after Close; that is reported as an error
func (c *clientConn) deliver(e *riemanngo.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorx.IllegalState.New("riemann client is closed: %v", r)
		}
	}()

	_, err = riemanngo.SendEvent(c.client, e)
	return
}

func (c *clientConn) stopDelivery() {
	c.closeOnce.Do(func() { close(c.closeCh) })
}

func (c *clientConn) notifyError(err error) {
	if c.obs.OnError != nil {
		c.obs.OnError(c.id, err)
	}
}

// stopClient terminates the client request loop. Close dereferences the
// socket after the loop is stopped, which panics when dialing has failed.
func stopClient(client riemanngo.Client) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorx.IllegalState.New("riemann client was not connected: %v", r)
		}
	}()

	return client.Close()
}
