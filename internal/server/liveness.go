// Package server monitors connection liveness: a per-connection heartbeat
// probe and a global sweep that evicts unresponsive connections.
package server

import (
	"log"
	"sync"
	"time"
)

// startHeartbeat launches the connection's probe task: a WebSocket ping on a
// fixed interval. A probe that cannot be written means the transport is gone,
// which escalates to full cleanup. The returned cancel func is stored on the
// Connection and invoked exactly once during teardown; calling it again is
// harmless.
func (r *Relay) startHeartbeat(conn *Connection) func() {
	client := conn.Client
	if client == nil || client.conn == nil {
		return func() {}
	}

	stop := make(chan struct{})
	var once sync.Once
	id := conn.ID
	interval := r.cfg.Heartbeat.Interval

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				if err := client.sendPing(); err != nil {
					// A probe failing after its own cancellation stays
					// quiet; teardown is already underway.
					select {
					case <-stop:
					default:
						log.Printf("Heartbeat probe failed for %s: %v", client.addr, err)
						r.enqueueDisconnect(id)
					}
					return
				}
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

// sweepStale force-disconnects every connection whose last liveness
// acknowledgment is older than the staleness threshold. A dead transport is
// caught sooner by the read pump's disconnect event or a failed heartbeat
// probe; the sweep is the backstop for connections that stay readable but
// never acknowledge. Runs on the relay loop.
func (r *Relay) sweepStale() {
	now := time.Now()
	threshold := r.cfg.Heartbeat.StaleAfter

	for _, conn := range r.registry.All() {
		if now.Sub(conn.LastSeen) > threshold {
			log.Printf("Sweep evicting connection %s from %s (last seen %s ago)",
				conn.ID, conn.RemoteAddr, now.Sub(conn.LastSeen).Round(time.Second))
			r.cleanup(conn.ID)
		}
	}
}
