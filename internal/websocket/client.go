// internal/websocket/client.go
package websocket

import (
	"context"
	"sync"
	"time"

	wstypes "academy-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is one presence socket of a tab
type Client struct {
	presence  *Presence
	conn      *websocket.Conn
	send      chan []byte
	browserID string
	tabID     string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(p *Presence, conn *websocket.Conn, browserID, tabID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		presence:  p,
		conn:      conn,
		send:      make(chan []byte, 16),
		browserID: browserID,
		tabID:     tabID,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// TabID returns the tab the socket belongs to
func (c *Client) TabID() string {
	return c.tabID
}

// Serve registers the client and runs its pumps until the socket closes.
// It returns immediately; the pumps run in their own goroutines.
func (c *Client) Serve() {
	c.presence.register(c)
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, wstypes.ConnectedData{TabID: c.tabID}))

	go c.WritePump()
	go c.ReadPump()
}

// ReadPump handles incoming messages from the tab
func (c *Client) ReadPump() {
	defer func() {
		c.presence.disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.presence.logger.Debug("tab socket error", zap.String("tab_id", c.tabID), zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump handles outgoing messages and keepalive pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "failed to parse message")
		return
	}

	switch msg.Type {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))

	case wstypes.EventTypeTabClosing:
		// sent from the page's unload handler, the socket usually dies right after
		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		c.presence.closeTab(ctx, c.browserID, c.tabID)
		cancel()

	default:
		c.SendError("unknown_type", "unsupported message type")
	}
}

// SendMessage queues a message for the tab. It drops the message when the
// send buffer is full.
func (c *Client) SendMessage(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		c.presence.logger.Warn("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.presence.logger.Warn("tab socket send buffer full", zap.String("tab_id", c.tabID))
	}
}

func (c *Client) SendError(code, message string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
	}))
}

// Close stops the client's pumps
func (c *Client) Close() {
	c.closeOnce.Do(c.cancel)
}
