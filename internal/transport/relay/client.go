package relay

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/metrics"
	"github.com/calcvault/core/pkg/logger"
)

// Client is a websocket endpoint on the relay network, implementing
// the broadcast transport for a context running in its own process.
type Client struct {
	ws *websocket.Conn

	mu       sync.Mutex
	handlers []func(event.Event)
	closed   bool
}

// Dial attaches to the relay at url (ws://host:port/ws).
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxFrameBytes)

	c := &Client{ws: ws}
	go c.readLoop()
	return c, nil
}

func (c *Client) Publish(ev event.Event) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrEndpointClosed
	}

	data, err := event.Encode(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *Client) OnEvent(h func(event.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.ws.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				logger.Warn().Err(err).Msg("relay client: connection lost")
			}
			return
		}

		ev, err := event.Decode(data)
		if err != nil {
			metrics.EventsDropped.WithLabelValues(metrics.ReasonDecode).Inc()
			continue
		}

		c.mu.Lock()
		handlers := make([]func(event.Event), len(c.handlers))
		copy(handlers, c.handlers)
		c.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

// DialRetry keeps dialing until ctx is done, backing off linearly.
// Useful while the relay daemon is still coming up.
func DialRetry(ctx context.Context, url string) (*Client, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		c, err := Dial(ctx, url)
		if err == nil {
			return c, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}
}
