// Package server defines the JSON frame types exchanged with chat clients.
// Every frame carries a "type" discriminator; unrecognized inbound types are
// ignored for forward compatibility.
package server

import (
	"encoding/json"
	"log"
	"time"
)

// Inbound frame types.
const (
	frameJoin       = "join"
	frameChat       = "chat"
	frameTyping     = "typing"
	frameGetHistory = "get_history"
	framePing       = "ping"
)

// Outbound frame types.
const (
	frameConnection  = "connection"
	frameError       = "error"
	frameUserJoined  = "user_joined"
	frameUserLeft    = "user_left"
	frameUserList    = "user_list"
	frameHistory     = "history"
	frameRoomChanged = "room_changed"
	framePong        = "pong"
)

// inboundFrame is the superset envelope for all client-to-server frames.
// Which fields are meaningful depends on Type.
type inboundFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Room     string `json:"room"`
	Message  string `json:"message"`
	IsTyping bool   `json:"isTyping"`
}

// ChatMessage is a single chat entry. It is immutable once created and is
// both the broadcast payload and the unit stored in a room's history buffer.
type ChatMessage struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	ClientID    string    `json:"clientId"`
	Department  string    `json:"department"`
	Role        string    `json:"role"`
}

// connectionFrame greets a client once, immediately after the upgrade.
type connectionFrame struct {
	Type       string    `json:"type"`
	ClientID   string    `json:"clientId"`
	Message    string    `json:"message"`
	ServerTime time.Time `json:"serverTime"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// userNoticeFrame announces a member joining or leaving a room; the Type
// field distinguishes the two.
type userNoticeFrame struct {
	Type        string    `json:"type"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Department  string    `json:"department"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

type userSummary struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	Department  string    `json:"department"`
	Role        string    `json:"role"`
}

type userListFrame struct {
	Type  string        `json:"type"`
	Users []userSummary `json:"users"`
	Room  string        `json:"room"`
}

type historyFrame struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

type roomChangedFrame struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Message string `json:"message"`
}

type typingFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type pongFrame struct {
	Type string `json:"type"`
}

// encodeFrame marshals an outbound frame. The frame types above cannot fail
// to marshal; a nil return is only possible if a new type violates that.
func encodeFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding outbound frame: %v", err)
		return nil
	}
	return data
}
