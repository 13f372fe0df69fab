package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/bridge"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	session   *bridge.Session
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		hub:     hub,
		conn:    conn,
		session: bridge.NewSession(id),
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// close is a thread-safe method to clean up the client's resources.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		logrus.WithField("remoteAddr", c.conn.RemoteAddr()).Debug("closing client connection")
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		if err := c.conn.Close(); err != nil {
			logrus.WithError(err).WithField("remoteAddr", c.conn.RemoteAddr()).Debug("error while closing client connection")
		}
	})
}

// enqueue queues a reply for the write pump. It waits for room in the queue
// and gives up once the client is closed.
func (c *Client) enqueue(r bridge.Reply) bool {
	msg, err := r.Encode()
	if err != nil {
		logrus.WithError(err).WithField("type", r.Type).Error("failed to encode reply")
		return false
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

// readPump reads commands and answers them in order. Read deadlines are
// extended by every message and pong.
func (c *Client) readPump(ctx context.Context, handle func(context.Context, *Client, string)) {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logrus.WithError(err).Warn("failed to set initial read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logrus.WithError(err).WithField("client", c.id).Warn("client connection error")
			} else {
				logrus.WithError(err).WithField("client", c.id).Debug("client read ended")
			}
			return
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logrus.WithError(err).Warn("failed to reset read deadline")
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(ctx, c, string(msg))
	}
}

// writePump pumps messages from the send queue to the websocket connection
// and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logrus.WithError(err).Warn("failed to set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithError(err).WithField("client", c.id).Warn("client write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logrus.WithError(err).WithField("client", c.id).Debug("ping failed")
				return
			}
		}
	}
}
