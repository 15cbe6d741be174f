// Package relay bridges contexts running in separate processes into
// one broadcast network. The server is a dumb fan-out: every frame an
// endpoint sends is relayed verbatim to every other endpoint, never
// back to its sender. It keeps no log and performs no replay, so an
// endpoint attaching late has missed whatever came before.
package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/calcvault/core/internal/metrics"
	"github.com/calcvault/core/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256

	// maxFrameBytes must stay above the attachment size cap callers
	// enforce, plus envelope overhead; a frame past the socket's read
	// limit does not just drop, it kills the connection.
	maxFrameBytes = 8 << 20
)

type frame struct {
	from uuid.UUID
	data []byte
}

// Server owns the set of attached endpoints and routes frames between
// them. Run must be started in a goroutine before serving.
type Server struct {
	limit rate.Limit
	burst int

	register   chan *conn
	unregister chan *conn
	broadcast  chan *frame
	quit       chan struct{}
}

func NewServer(limit rate.Limit, burst int) *Server {
	return &Server{
		limit:      limit,
		burst:      burst,
		register:   make(chan *conn),
		unregister: make(chan *conn),
		broadcast:  make(chan *frame, 256),
		quit:       make(chan struct{}),
	}
}

// Run is the relay's main event loop.
func (s *Server) Run() {
	conns := make(map[uuid.UUID]*conn)

	drop := func(c *conn) {
		if _, ok := conns[c.id]; !ok {
			return
		}
		delete(conns, c.id)
		close(c.send)
		metrics.RelayConnections.Dec()
		logger.Info().Str("endpoint", c.id.String()).Int("total", len(conns)).Msg("relay: endpoint detached")
	}

	for {
		select {
		case c := <-s.register:
			conns[c.id] = c
			metrics.RelayConnections.Inc()
			logger.Info().Str("endpoint", c.id.String()).Int("total", len(conns)).Msg("relay: endpoint attached")

		case c := <-s.unregister:
			drop(c)

		case f := <-s.broadcast:
			metrics.RelayFramesRelayed.Inc()
			for _, c := range conns {
				if c.id == f.from {
					continue
				}
				select {
				case c.send <- f.data:
				default:
					// Buffer full: the endpoint is too slow to
					// keep up, disconnect it.
					drop(c)
				}
			}

		case <-s.quit:
			for _, c := range conns {
				drop(c)
			}
			return
		}
	}
}

// Close stops the event loop and detaches every endpoint.
func (s *Server) Close() {
	close(s.quit)
}

// ServeHTTP upgrades the request to a websocket endpoint on the relay.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Warn().Err(err).Msg("relay: accept failed")
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	c := newConn(s)
	select {
	case s.register <- c:
	case <-s.quit:
		ws.Close(websocket.StatusGoingAway, "relay shutting down")
		return
	}

	go c.writePump(ws)
	c.readPump(ws)
}

// conn is one attached endpoint, socket-backed or in-process.
type conn struct {
	server  *Server
	id      uuid.UUID
	send    chan []byte
	limiter *rate.Limiter
}

func newConn(s *Server) *conn {
	return &conn{
		server:  s,
		id:      uuid.New(),
		send:    make(chan []byte, sendBufSize),
		limiter: rate.NewLimiter(s.limit, s.burst),
	}
}

// readPump relays inbound frames until the socket drops.
func (c *conn) readPump(ws *websocket.Conn) {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.quit:
		}
		ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := ws.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				logger.Debug().Err(err).Str("endpoint", c.id.String()).Msg("relay: read error")
			}
			return
		}
		if !c.limiter.Allow() {
			metrics.RelayFramesThrottled.Inc()
			continue
		}
		select {
		case c.server.broadcast <- &frame{from: c.id, data: data}:
		case <-c.server.quit:
			return
		}
	}
}

// writePump drains the send buffer to the socket, pinging on idle.
func (c *conn) writePump(ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := ws.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debug().Err(err).Str("endpoint", c.id.String()).Msg("relay: write error")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := ws.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
