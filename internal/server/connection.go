// Package server tracks live connections in an in-memory registry keyed by
// generated connection ids.
package server

import (
	"time"

	"github.com/google/uuid"
)

// Connection is the relay-side record for one transport session. The display
// identity fields stay zero until the client performs a join; Room is empty
// while the connection is unjoined. All fields are owned by the relay loop.
type Connection struct {
	ID          string
	Client      *Client
	RemoteAddr  string
	Username    string
	DisplayName string
	Department  string
	Role        string
	Room        string
	JoinedAt    time.Time
	LastSeen    time.Time

	limiter windowLimiter

	// stopHeartbeat cancels this connection's heartbeat task. It is invoked
	// exactly once, by the relay's cleanup path.
	stopHeartbeat func()
}

// Joined reports whether the connection has completed a join.
func (c *Connection) Joined() bool {
	return c.Room != ""
}

// Registry owns the set of live connections. Every accessor tolerates absent
// ids because a connection may have been removed by the time any caller
// looks it up; absence is never an error.
type Registry struct {
	conns map[string]*Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register stores a new unjoined connection under a fresh id and returns it.
func (r *Registry) Register(client *Client, remoteAddr string, limit RateLimitConfig) *Connection {
	conn := &Connection{
		ID:         uuid.NewString(),
		Client:     client,
		RemoteAddr: remoteAddr,
		LastSeen:   time.Now(),
		limiter:    newWindowLimiter(limit.MaxMessages, limit.Window),
	}
	r.conns[conn.ID] = conn
	return conn
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Remove deletes the connection record. Removing an absent id is a no-op;
// the return value reports whether anything was deleted.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// All returns a snapshot of every registered connection, for the liveness
// sweep and diagnostics.
func (r *Registry) All() []*Connection {
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.conns)
}
