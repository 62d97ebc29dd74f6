package http

import (
	"sync"

	"github.com/google/uuid"

	"github.com/galafis/roomcast-server/internal/core"
)

// wsConn bridges one websocket to the core. Events queue on a buffered
// channel drained by the write loop; Send never blocks, so a consumer that
// falls a full buffer behind is reported as slow and dropped by the core.
type wsConn struct {
	id     string
	events chan *core.Event

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(buffer int) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		events: make(chan *core.Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ev *core.Event) error {
	select {
	case <-c.done:
		return core.ErrConnClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return core.ErrConnClosed
	default:
		return core.ErrSlowConsumer
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
