// Package server manages the WebSocket transport wrapper for each chat
// connection: the read/write pumps, pong handling, and close-error
// classification.
package server

import (
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client wraps one WebSocket connection. It owns no relay state; inbound
// frames, pong receipts, and disconnects are posted to the relay loop as
// events. The id and closed fields are written only on the relay loop.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	relay  *Relay
	addr   string
	id     string
	closed bool
}

// NewClient creates a Client for the given WebSocket connection. The send
// channel is buffered so the relay loop never blocks on a slow consumer; a
// full buffer counts as a delivery failure.
func NewClient(conn *websocket.Conn, relay *Relay, addr string) *Client {
	if conn != nil {
		// Hard transport cap above the protocol limit; the router enforces
		// the 16KB protocol limit itself with an error reply so an oversized
		// frame does not cost the client its connection.
		conn.SetReadLimit(relay.cfg.MaxFrameSize * 4)
	}
	return &Client{
		conn:  conn,
		send:  make(chan []byte, 256),
		relay: relay,
		addr:  addr,
	}
}

// pongWait is the read deadline refreshed by each pong. It exceeds the
// staleness threshold so the sweep, not the read loop, decides eviction.
func (c *Client) pongWait() time.Duration {
	hb := c.relay.cfg.Heartbeat
	return hb.StaleAfter + hb.Interval
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		c.relay.enqueuePong(c.id)
		return nil
	})
}

// handleReadError logs the read failure with as much context as the error
// type allows. Every read error ends the pump.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Frame from %s exceeded the transport read limit", c.addr)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		log.Printf("Unexpected WebSocket error from %s: %v", c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.relay.enqueueDisconnect(c.id)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.relay.enqueueFrame(c, raw)
	}
}

func (c *Client) writePump() {
	defer c.closeConnection()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Error setting write deadline for %s: %v", c.addr, err)
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing message to %s: %v", c.addr, err)
			}
			return
		}
	}

	// The relay closed the send channel during cleanup; say goodbye.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
	}
}

// sendPing writes a liveness probe. Safe to call from the heartbeat
// goroutine: WriteControl is documented as concurrency-safe.
func (c *Client) sendPing() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing connection in writePump: %v", err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
