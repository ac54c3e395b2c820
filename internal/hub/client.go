package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"kasupel/internal/chessrules"
)

const writeWait = 10 * time.Second

// Client is one socket attached to a Room on behalf of one side.
type Client struct {
	UserID int64
	Side   chessrules.Side

	conn *websocket.Conn
	send chan []byte
}

func (c *Client) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		// slow consumer: drop rather than block the room's command loop
		// (mirrors rias-glitch-telegram-webapp's non-blocking Send pattern)
	}
}

// writePump drains c.send to the socket until it is closed. Run in its own
// goroutine per connection, per gorilla/websocket's documented usage.
func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
