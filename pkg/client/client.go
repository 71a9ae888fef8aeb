// Package client implements the UI-side connection to the hearthd bridge.
//
// A Client multiplexes request/response calls and channel subscriptions over
// a single WebSocket connection. Responses are matched to requests by id;
// frames without an id are pushes and fan out to subscribed handlers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/logging"
)

// Handler receives the payload of a push event.
type Handler func(payload map[string]interface{})

// frame is the union of response and push shapes on the wire.
type frame struct {
	ID      string              `json:"id,omitempty"`
	OK      bool                `json:"ok,omitempty"`
	Channel string              `json:"channel,omitempty"`
	Payload json.RawMessage     `json:"payload,omitempty"`
	Error   *errors.HearthError `json:"error,omitempty"`
}

type outgoing struct {
	ID      string                 `json:"id"`
	Channel string                 `json:"channel"`
	Payload map[string]interface{} `json:"payload"`
}

// Client is a connection to a running hearthd bridge.
type Client struct {
	conn   *websocket.Conn
	logger *logrus.Entry

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan frame
	handlers map[string]map[int]Handler
	nextSub  int

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the bridge endpoint at addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/bridge"}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge at %s: %w", addr, err)
	}

	c := &Client{
		conn:     conn,
		logger:   logging.NewLogger("bridge-client"),
		pending:  make(map[string]chan frame),
		handlers: make(map[string]map[int]Handler),
		closed:   make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

// Request sends a request on channel and waits for the matching response.
func (c *Client) Request(ctx context.Context, channel string, payload map[string]interface{}) (map[string]interface{}, error) {
	id := uuid.NewString()

	ch := make(chan frame, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(outgoing{ID: id, Channel: channel, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			if resp.Error != nil {
				return nil, resp.Error
			}
			return nil, errors.New(errors.ErrCodeInternal, "request failed with no error detail")
		}
		return decodePayload(resp.Payload)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, errors.New(errors.ErrCodeInternal, "connection closed")
	}
}

// Subscribe registers fn for push events on channel. The returned function
// removes the subscription and is safe to call more than once.
func (c *Client) Subscribe(channel string, fn func(payload map[string]interface{})) func() {
	c.mu.Lock()
	if c.handlers[channel] == nil {
		c.handlers[channel] = make(map[int]Handler)
	}
	id := c.nextSub
	c.nextSub++
	c.handlers[channel][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[channel], id)
			c.mu.Unlock()
		})
	}
}

// Close tears down the connection. In-flight requests fail.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.WithError(err).Debug("Bridge connection closed")
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.WithError(err).Warn("Malformed bridge frame")
			continue
		}

		if f.ID != "" {
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}

		if f.Channel == "" {
			continue
		}

		payload, err := decodePayload(f.Payload)
		if err != nil {
			c.logger.WithError(err).WithField("channel", f.Channel).Warn("Malformed push payload")
			continue
		}

		c.mu.Lock()
		handlers := make([]Handler, 0, len(c.handlers[f.Channel]))
		for _, h := range c.handlers[f.Channel] {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()

		for _, h := range handlers {
			h(payload)
		}
	}
}

func decodePayload(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
