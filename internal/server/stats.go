// Package server exposes an operational snapshot of the relay for the
// diagnostics endpoint.
package server

import (
	"runtime"
	"time"
)

// RoomStats reports one room's member and buffered message counts.
type RoomStats struct {
	Members  int `json:"members"`
	Messages int `json:"messages"`
}

// Stats is a point-in-time snapshot of the relay, taken on the event loop so
// the counts are mutually consistent.
type Stats struct {
	Connections    int                  `json:"connections"`
	Rooms          int                  `json:"rooms"`
	RoomDetail     map[string]RoomStats `json:"roomDetail"`
	UptimeSeconds  float64              `json:"uptimeSeconds"`
	HeapAllocBytes uint64               `json:"heapAllocBytes"`
	SysBytes       uint64               `json:"sysBytes"`
}

func (r *Relay) snapshotStats() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Stats{
		Connections:    r.registry.Len(),
		Rooms:          r.rooms.Len(),
		RoomDetail:     r.rooms.counts(),
		UptimeSeconds:  time.Since(r.started).Seconds(),
		HeapAllocBytes: mem.HeapAlloc,
		SysBytes:       mem.Sys,
	}
}

// Stats requests a snapshot from the running event loop. Returns the zero
// Stats if the relay has been shut down.
func (r *Relay) Stats() Stats {
	reply := make(chan Stats, 1)

	select {
	case r.statsReq <- reply:
	case <-r.ctx.Done():
		return Stats{}
	}

	select {
	case stats := <-reply:
		return stats
	case <-r.ctx.Done():
		return Stats{}
	}
}
