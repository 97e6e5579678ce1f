// Package server coordinates connection registration, room broadcast, and
// connection cleanup for the chat relay via the Relay type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

type frameEvent struct {
	client *Client
	data   []byte
}

// Relay is the single-goroutine actor that owns the connection registry and
// the room directory. Run drains the event channels; every other goroutine
// (pumps, heartbeats, HTTP handlers) interacts with relay state exclusively
// by posting events, so no handler ever observes a partial mutation and the
// registries need no locks.
type Relay struct {
	cfg      Config
	registry *Registry
	rooms    *RoomDirectory

	register   chan *Client
	disconnect chan string
	frames     chan frameEvent
	pongs      chan string
	statsReq   chan chan Stats

	started time.Time
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRelay creates a Relay with the given configuration. Call Run in its own
// goroutine to start processing.
func NewRelay(cfg Config) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		cfg:        cfg,
		registry:   NewRegistry(),
		rooms:      NewRoomDirectory(cfg.History.RoomBuffer),
		register:   make(chan *Client),
		disconnect: make(chan string, 64),
		frames:     make(chan frameEvent, 256),
		pongs:      make(chan string, 64),
		statsReq:   make(chan chan Stats),
		started:    time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run is the relay's event loop. It runs until Shutdown and must be the only
// goroutine that touches the registry and room directory.
func (r *Relay) Run() {
	defer close(r.done)

	sweep := time.NewTicker(r.cfg.Heartbeat.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdownClients()
			return

		case client := <-r.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			r.handleRegister(client)

		case id := <-r.disconnect:
			r.cleanup(id)

		case ev := <-r.frames:
			r.route(ev.client, ev.data)

		case id := <-r.pongs:
			if conn, ok := r.registry.Get(id); ok {
				conn.LastSeen = time.Now()
			}

		case <-sweep.C:
			r.sweepStale()

		case reply := <-r.statsReq:
			reply <- r.snapshotStats()
		}
	}
}

// Register hands a newly accepted client to the relay loop.
func (r *Relay) Register(client *Client) {
	select {
	case r.register <- client:
	case <-r.ctx.Done():
	}
}

func (r *Relay) enqueueDisconnect(id string) {
	select {
	case r.disconnect <- id:
	case <-r.ctx.Done():
	}
}

func (r *Relay) enqueueFrame(client *Client, data []byte) {
	select {
	case r.frames <- frameEvent{client: client, data: data}:
	case <-r.ctx.Done():
	}
}

func (r *Relay) enqueuePong(id string) {
	select {
	case r.pongs <- id:
	case <-r.ctx.Done():
	}
}

// handleRegister allocates the connection record, starts its heartbeat task,
// greets the client, and launches the transport pumps.
func (r *Relay) handleRegister(client *Client) {
	conn := r.registry.Register(client, client.addr, r.cfg.RateLimit)
	client.id = conn.ID
	conn.stopHeartbeat = r.startHeartbeat(conn)

	log.Printf("Connection %s registered from %s. Total connections: %d",
		conn.ID, conn.RemoteAddr, r.registry.Len())

	r.sendToConn(conn, encodeFrame(connectionFrame{
		Type:       frameConnection,
		ClientID:   conn.ID,
		Message:    "Connected to chat relay",
		ServerTime: time.Now(),
	}))

	r.startPumps(client)
}

func (r *Relay) startPumps(client *Client) {
	if client.conn == nil {
		return
	}
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		client.writePump()
	}()
	go func() {
		defer r.wg.Done()
		client.readPump()
	}()
}

// cleanup tears down one connection: heartbeat cancelled, registry record
// removed, room membership unwound (announcing the departure to survivors),
// transport closed. Idempotent; an already-removed id is a no-op.
func (r *Relay) cleanup(id string) {
	conn, ok := r.registry.Get(id)
	if !ok {
		return
	}

	if conn.stopHeartbeat != nil {
		conn.stopHeartbeat()
	}
	r.registry.Remove(id)

	if conn.Room != "" {
		room := conn.Room
		conn.Room = ""
		r.leaveRoom(conn, room)
	}

	r.closeClient(conn.Client)
	log.Printf("Connection %s from %s removed. Total connections: %d",
		id, conn.RemoteAddr, r.registry.Len())
}

// leaveRoom removes the connection from a room it was a member of and, if
// the room survives, announces the departure and refreshes the member list.
func (r *Relay) leaveRoom(conn *Connection, room string) {
	r.rooms.Leave(room, conn.ID)
	if !r.rooms.Exists(room) {
		return
	}

	r.broadcastToRoom(room, encodeFrame(userNoticeFrame{
		Type:        frameUserLeft,
		Username:    conn.Username,
		DisplayName: conn.DisplayName,
		Department:  conn.Department,
		Message:     conn.DisplayName + " left the room",
		Timestamp:   time.Now(),
	}), "")
	r.broadcastUserList(room)
}

// broadcastToRoom delivers a payload to every member of the room except the
// excluded connection. A member that cannot be delivered to is presumed
// stale and pruned from the room on the spot, so broadcast is self-healing
// even between liveness sweeps. Nonexistent rooms are a silent no-op.
func (r *Relay) broadcastToRoom(room string, payload []byte, excludeID string) {
	for _, id := range r.rooms.Members(room) {
		if id == excludeID {
			continue
		}
		conn, ok := r.registry.Get(id)
		if !ok || !r.safeSend(conn.Client, payload) {
			r.rooms.Leave(room, id)
			log.Printf("Pruned stale member %s from room %q during broadcast", id, room)
		}
	}
}

func (r *Relay) broadcastUserList(room string) {
	members := r.rooms.Members(room)
	users := make([]userSummary, 0, len(members))
	for _, id := range members {
		conn, ok := r.registry.Get(id)
		if !ok {
			continue
		}
		users = append(users, userSummary{
			ID:          conn.ID,
			Username:    conn.Username,
			DisplayName: conn.DisplayName,
			JoinedAt:    conn.JoinedAt,
			Department:  conn.Department,
			Role:        conn.Role,
		})
	}
	r.broadcastToRoom(room, encodeFrame(userListFrame{
		Type:  frameUserList,
		Users: users,
		Room:  room,
	}), "")
}

// sendToConn delivers a payload to a single known connection. Unlike
// broadcast's lazy pruning, a targeted send that fails escalates to full
// teardown: the connection is conclusively unreachable.
func (r *Relay) sendToConn(conn *Connection, payload []byte) {
	if !r.safeSend(conn.Client, payload) {
		r.cleanup(conn.ID)
	}
}

// sendToOne is sendToConn by connection id; absent ids are a no-op.
func (r *Relay) sendToOne(id string, payload []byte) {
	conn, ok := r.registry.Get(id)
	if !ok {
		return
	}
	r.sendToConn(conn, payload)
}

// safeSend enqueues a payload onto the client's send buffer without
// blocking. A closed client, a full buffer, or a nil payload is a failure.
func (r *Relay) safeSend(client *Client, payload []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered from panic in safeSend: %v", rec)
			ok = false
		}
	}()

	if client == nil || client.closed || payload == nil {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// closeClient marks the client closed and closes its send channel, which
// ends the write pump and closes the socket. Safe to call once per client;
// cleanup's registry check guarantees that.
func (r *Relay) closeClient(client *Client) {
	if client == nil || client.closed {
		return
	}
	client.closed = true
	close(client.send)
}

// shutdownClients closes every client so the pumps drain out: the send
// channel close ends each writePump, the socket close unblocks each
// readPump. Run is returning, so no further sends can race the channel
// close.
func (r *Relay) shutdownClients() {
	conns := r.registry.All()
	log.Printf("Shutting down %d client connections...", len(conns))

	for _, conn := range conns {
		if conn.stopHeartbeat != nil {
			conn.stopHeartbeat()
		}
		r.closeClient(conn.Client)
		if conn.Client != nil && conn.Client.conn != nil {
			if err := conn.Client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", conn.RemoteAddr, err)
			}
		}
	}
}

// Shutdown stops the event loop and waits for the pump and heartbeat
// goroutines to finish, or gives up after the timeout.
func (r *Relay) Shutdown(timeout time.Duration) error {
	log.Println("Initiating relay shutdown...")

	r.cancel()
	<-r.done

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Relay shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Relay shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
