package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Client is one websocket connection of an authenticated user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		Hub:    hub,
		done:   make(chan struct{}),
	}
}

// Run registers the client, pushes the current status and serves the
// connection until it closes.
func (c *Client) Run(ctx context.Context) {
	c.Hub.register(c)
	defer c.Hub.unregister(c)

	go c.writePump()
	c.enqueue(encode(MsgReady, nil))
	c.sendStatus(ctx)

	c.readPump(ctx)
}

func (c *Client) sendStatus(ctx context.Context) {
	status, err := c.Hub.status(ctx, c.UserID)
	if err != nil {
		c.enqueue(encode(MsgError, ErrorPayload{Message: "status unavailable"}))
		return
	}
	c.enqueue(encode(MsgStatus, StatusPayload{Status: status}))
}

// enqueue drops the message when the client is not keeping up.
func (c *Client) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.Send <- msg:
	default:
		c.Hub.log.Warn("client send buffer full", "user_id", c.UserID)
	}
}

// read
func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.enqueue(encode(MsgError, ErrorPayload{Message: "invalid message"}))
			continue
		}
		switch env.Type {
		case MsgPing:
			c.enqueue(encode(MsgPong, nil))
		case MsgRefresh:
			c.sendStatus(ctx)
		default:
			c.enqueue(encode(MsgError, ErrorPayload{Message: "unknown message type"}))
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
