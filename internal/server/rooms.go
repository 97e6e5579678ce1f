// Package server maintains the room directory: named broadcast groups that
// exist implicitly from first join to last leave, each with a bounded buffer
// of recent chat messages.
package server

import "log"

type room struct {
	members map[string]struct{}
	history []ChatMessage
}

// RoomDirectory owns all rooms. It is mutated only from the relay loop.
// A room with zero members never persists: the last leave deletes the room
// together with its history.
type RoomDirectory struct {
	rooms      map[string]*room
	historyCap int
}

// NewRoomDirectory creates an empty directory whose rooms retain at most
// historyCap messages each.
func NewRoomDirectory(historyCap int) *RoomDirectory {
	if historyCap <= 0 {
		historyCap = 1
	}
	return &RoomDirectory{
		rooms:      make(map[string]*room),
		historyCap: historyCap,
	}
}

// Join adds the connection to the named room, creating the room if absent.
func (d *RoomDirectory) Join(name, connID string) {
	rm, ok := d.rooms[name]
	if !ok {
		rm = &room{members: make(map[string]struct{})}
		d.rooms[name] = rm
		log.Printf("Room %q created", name)
	}
	rm.members[connID] = struct{}{}
}

// Leave removes the connection from the named room. When the member set
// empties, the room and its history are discarded. Absent rooms and absent
// members are no-ops.
func (d *RoomDirectory) Leave(name, connID string) {
	rm, ok := d.rooms[name]
	if !ok {
		return
	}
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		delete(d.rooms, name)
		log.Printf("Room %q deleted (last member left)", name)
	}
}

// AppendMessage appends to the room's history, evicting the oldest entries
// once the buffer exceeds its cap. No-op if the room does not exist.
func (d *RoomDirectory) AppendMessage(name string, msg ChatMessage) {
	rm, ok := d.rooms[name]
	if !ok {
		return
	}
	rm.history = append(rm.history, msg)
	if excess := len(rm.history) - d.historyCap; excess > 0 {
		rm.history = append(rm.history[:0:0], rm.history[excess:]...)
	}
}

// RecentMessages returns up to limit of the room's most recent messages,
// oldest first. The slice is a copy and safe to hold across mutations.
func (d *RoomDirectory) RecentMessages(name string, limit int) []ChatMessage {
	msgs := []ChatMessage{}
	rm, ok := d.rooms[name]
	if !ok {
		return msgs
	}
	history := rm.history
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append(msgs, history...)
}

// Members returns a snapshot of the room's member connection ids. The set
// may contain stale ids; broadcast prunes those lazily.
func (d *RoomDirectory) Members(name string) []string {
	rm, ok := d.rooms[name]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	return ids
}

// Exists reports whether the named room currently has members.
func (d *RoomDirectory) Exists(name string) bool {
	_, ok := d.rooms[name]
	return ok
}

// Len returns the number of live rooms.
func (d *RoomDirectory) Len() int {
	return len(d.rooms)
}

// counts reports per-room member and message counts for diagnostics.
func (d *RoomDirectory) counts() map[string]RoomStats {
	out := make(map[string]RoomStats, len(d.rooms))
	for name, rm := range d.rooms {
		out[name] = RoomStats{
			Members:  len(rm.members),
			Messages: len(rm.history),
		}
	}
	return out
}
