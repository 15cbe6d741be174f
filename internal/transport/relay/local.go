package relay

import (
	"errors"
	"sync"

	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/metrics"
	"github.com/calcvault/core/pkg/logger"
)

var ErrEndpointClosed = errors.New("relay: endpoint closed")

// LocalEndpoint attaches an in-process context directly to the relay,
// with no socket in between. The relay daemon's own engine (the admin
// context) rides on one of these.
type LocalEndpoint struct {
	server *Server
	conn   *conn

	mu       sync.Mutex
	handlers []func(event.Event)
	closed   bool
}

// LocalEndpoint mints and attaches a new in-process endpoint. After
// the server has closed, the returned endpoint is already dead and
// rejects publishes rather than attaching.
func (s *Server) LocalEndpoint() *LocalEndpoint {
	ep := &LocalEndpoint{server: s, conn: newConn(s)}
	select {
	case s.register <- ep.conn:
		go ep.readLoop()
	case <-s.quit:
		ep.closed = true
		close(ep.conn.send)
	}
	return ep
}

func (ep *LocalEndpoint) Publish(ev event.Event) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()
	if closed {
		return ErrEndpointClosed
	}

	data, err := event.Encode(ev)
	if err != nil {
		return err
	}

	// Check quit before racing it against the buffered broadcast
	// channel, so a publish after server close fails deterministically.
	select {
	case <-ep.server.quit:
		return ErrEndpointClosed
	default:
	}
	select {
	case ep.server.broadcast <- &frame{from: ep.conn.id, data: data}:
		return nil
	case <-ep.server.quit:
		return ErrEndpointClosed
	}
}

func (ep *LocalEndpoint) OnEvent(h func(event.Event)) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.handlers = append(ep.handlers, h)
}

func (ep *LocalEndpoint) Close() error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	ep.mu.Unlock()

	select {
	case ep.server.unregister <- ep.conn:
	case <-ep.server.quit:
	}
	return nil
}

func (ep *LocalEndpoint) readLoop() {
	for data := range ep.conn.send {
		ev, err := event.Decode(data)
		if err != nil {
			metrics.EventsDropped.WithLabelValues(metrics.ReasonDecode).Inc()
			logger.Debug().Err(err).Msg("relay: dropping undecodable frame")
			continue
		}

		ep.mu.Lock()
		handlers := make([]func(event.Event), len(ep.handlers))
		copy(handlers, ep.handlers)
		ep.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}
