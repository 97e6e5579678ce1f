package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair upgrades one real WebSocket connection and returns both ends, so
// the heartbeat task has an actual transport to probe.
func wsPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()

	upgrade := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conns := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrade.Upgrade(w, req, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(ts.Close)

	clientSide, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = clientSide.Close() })

	select {
	case serverSide = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("no server-side connection arrived")
	}
	t.Cleanup(func() { _ = serverSide.Close() })

	return serverSide, clientSide
}

func TestHeartbeatProbeFailureEscalates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Heartbeat.Interval = 10 * time.Millisecond
	r := NewRelay(cfg)

	serverSide, _ := wsPair(t)

	client := NewClient(serverSide, r, "10.0.0.1:100")
	conn := r.registry.Register(client, client.addr, cfg.RateLimit)
	client.id = conn.ID
	conn.stopHeartbeat = r.startHeartbeat(conn)
	defer conn.stopHeartbeat()

	// Kill the transport out from under the probe; the next ping write
	// fails and must escalate to a disconnect event.
	_ = serverSide.Close()

	select {
	case id := <-r.disconnect:
		if id != conn.ID {
			t.Errorf("disconnect event for %s, want %s", id, conn.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat probe failure did not post a disconnect event")
	}
}

func TestHeartbeatStopCancelsProbes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Heartbeat.Interval = 10 * time.Millisecond
	r := NewRelay(cfg)

	serverSide, _ := wsPair(t)

	client := NewClient(serverSide, r, "10.0.0.1:100")
	conn := r.registry.Register(client, client.addr, cfg.RateLimit)
	client.id = conn.ID
	conn.stopHeartbeat = r.startHeartbeat(conn)

	// Cancel first, then kill the transport: no disconnect event may
	// follow, and the repeated stop call must be harmless.
	conn.stopHeartbeat()
	conn.stopHeartbeat()
	_ = serverSide.Close()

	select {
	case id := <-r.disconnect:
		t.Errorf("cancelled heartbeat still posted a disconnect for %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}
