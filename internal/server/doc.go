// Package server implements the real-time chat relay that the inventory
// application mounts next to its HTTP API.
//
// The relay is a single-goroutine actor: all registry and room mutation
// happens inside Relay.Run, which drains typed event channels fed by the
// per-connection read/write pumps, the heartbeat tasks, and the HTTP
// handlers. The implementation is split into focused files for the
// connection registry, room directory, message router, liveness monitor,
// and the HTTP shell that hosts the WebSocket endpoint.
package server
