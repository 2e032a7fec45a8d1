package live

import (
	"context"
	"time"

	"live-auction/utils"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients never send more than control frames and small pings
	maxMessageSize = 4096

	sendBuffer = 64
)

// Message types pushed to clients
const (
	TypeWelcome   = "welcome"
	TypePrice     = "price"
	TypeAuction   = "auction"
	TypeViewers   = "viewers"
	TypeChat      = "chat"
	TypeCountdown = "countdown"
	TypeError     = "error"
)

// Message is the frame sent to a live client
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// client owns one websocket. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan Message
	id   string
}

func newClient(conn *websocket.Conn, id string) *client {
	return &client{conn: conn, send: make(chan Message, sendBuffer), id: id}
}

// offer queues msg without blocking. A full buffer drops it; the next state
// change supersedes it anyway.
func (c *client) offer(msg Message) {
	select {
	case c.send <- msg:
	default:
		utils.Warn("live: client buffer full, dropping message", map[string]any{
			"client_id": c.id,
			"type":      msg.Type,
		})
	}
}

// readPump drains the connection until the peer goes away
func (c *client) readPump() error {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				utils.Warn("live: unexpected close", map[string]any{"client_id": c.id, "error": err.Error()})
			}
			return errClientGone
		}
	}
}

// writePump sends queued messages and pings until ctx is done, then says
// goodbye and closes the socket so readPump returns.
func (c *client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case msg := <-c.send:
			raw, err := json.Marshal(msg)
			if err != nil {
				utils.Error("live: failed to encode message", map[string]any{"client_id": c.id, "type": msg.Type, "error": err.Error()})
				continue
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return errClientGone
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return errClientGone
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return errClientGone
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return errClientGone
			}
		}
	}
}
