// Package server routes inbound frames: size and decode checks, rate
// limiting, and dispatch by frame type to the protocol handlers. All of it
// runs on the relay loop.
package server

import (
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// route processes one raw inbound frame. Order matters: the size check runs
// before any decoding, rate limiting applies to every frame that reaches
// dispatch regardless of kind, and only then is the join state consulted.
func (r *Relay) route(client *Client, raw []byte) {
	conn, ok := r.registry.Get(client.id)
	if !ok {
		return
	}

	if int64(len(raw)) > r.cfg.MaxFrameSize {
		r.sendError(conn, "Message too large")
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	if !conn.limiter.allow(time.Now()) {
		r.sendError(conn, "Rate limit exceeded, slow down")
		return
	}

	switch frame.Type {
	case frameJoin:
		r.handleJoin(conn, frame)
	case frameChat:
		r.handleChat(conn, frame)
	case frameTyping:
		r.handleTyping(conn, frame)
	case frameGetHistory:
		r.handleGetHistory(conn)
	case framePing:
		r.sendToConn(conn, encodeFrame(pongFrame{Type: framePong}))
	default:
		log.Printf("Ignoring unknown frame type %q from %s", frame.Type, conn.RemoteAddr)
	}
}

func (r *Relay) sendError(conn *Connection, message string) {
	r.sendToConn(conn, encodeFrame(errorFrame{Type: frameError, Message: message}))
}

// handleJoin validates the join request, derives the client's display
// identity, moves it into the target room, and emits the join sequence:
// user_joined to the others, user_list to the room, history and room_changed
// to the joiner.
func (r *Relay) handleJoin(conn *Connection, frame inboundFrame) {
	limits := r.cfg.Limits

	if frame.Username == "" || frame.Room == "" {
		r.sendError(conn, "Username and room are required")
		return
	}
	if utf8.RuneCountInString(frame.Username) > limits.MaxUsernameLen {
		r.sendError(conn, "Username too long")
		return
	}
	if utf8.RuneCountInString(frame.Room) > limits.MaxRoomNameLen {
		r.sendError(conn, "Room name too long")
		return
	}

	department, displayName := splitIdentity(frame.Username)

	if conn.Room != "" {
		previous := conn.Room
		conn.Room = ""
		r.leaveRoom(conn, previous)
	}

	now := time.Now()
	conn.Username = frame.Username
	conn.DisplayName = displayName
	conn.Department = department
	conn.Role = deriveRole(frame.Username)
	conn.Room = frame.Room
	conn.JoinedAt = now

	r.rooms.Join(frame.Room, conn.ID)
	log.Printf("Connection %s joined room %q as %q (%s/%s)",
		conn.ID, frame.Room, displayName, department, conn.Role)

	r.broadcastToRoom(frame.Room, encodeFrame(userNoticeFrame{
		Type:        frameUserJoined,
		Username:    conn.Username,
		DisplayName: conn.DisplayName,
		Department:  conn.Department,
		Message:     conn.DisplayName + " joined the room",
		Timestamp:   now,
	}), conn.ID)

	r.broadcastUserList(frame.Room)

	r.sendToConn(conn, encodeFrame(historyFrame{
		Type:     frameHistory,
		Messages: r.rooms.RecentMessages(frame.Room, r.cfg.History.ReplyLimit),
	}))

	r.sendToConn(conn, encodeFrame(roomChangedFrame{
		Type:    frameRoomChanged,
		Room:    frame.Room,
		Message: "Joined room " + frame.Room,
	}))
}

// handleChat appends a valid chat message to the room's history and fans it
// out to every member, sender included. Whitespace-only bodies are dropped
// without a reply.
func (r *Relay) handleChat(conn *Connection, frame inboundFrame) {
	if !conn.Joined() {
		r.sendError(conn, "Join a room before sending messages")
		return
	}
	if strings.TrimSpace(frame.Message) == "" {
		return
	}
	if utf8.RuneCountInString(frame.Message) > r.cfg.Limits.MaxChatLen {
		r.sendError(conn, "Message too long")
		return
	}

	msg := ChatMessage{
		Type:        frameChat,
		ID:          uuid.NewString(),
		Username:    conn.Username,
		DisplayName: conn.DisplayName,
		Message:     frame.Message,
		Timestamp:   time.Now(),
		ClientID:    conn.ID,
		Department:  conn.Department,
		Role:        conn.Role,
	}

	r.rooms.AppendMessage(conn.Room, msg)
	r.broadcastToRoom(conn.Room, encodeFrame(msg), "")
}

// handleTyping relays a typing notice to the rest of the room. Unjoined
// connections are ignored silently.
func (r *Relay) handleTyping(conn *Connection, frame inboundFrame) {
	if !conn.Joined() {
		return
	}
	r.broadcastToRoom(conn.Room, encodeFrame(typingFrame{
		Type:     frameTyping,
		Username: conn.Username,
		IsTyping: frame.IsTyping,
	}), conn.ID)
}

func (r *Relay) handleGetHistory(conn *Connection) {
	if !conn.Joined() {
		r.sendError(conn, "Join a room before requesting history")
		return
	}
	r.sendToConn(conn, encodeFrame(historyFrame{
		Type:     frameHistory,
		Messages: r.rooms.RecentMessages(conn.Room, r.cfg.History.ReplyLimit),
	}))
}
